// Package localization resolves locale-tagged disconnect messages with
// language-tag fallback (spec.md §4.8).
package localization

import "strings"

// MessageKey is one of the closed set of templated disconnect reasons.
type MessageKey string

const (
	KeyResourcePackImpackablePrompt MessageKey = "resourcepack_impackable_prompt"
	KeyDisconnectTimeout            MessageKey = "disconnect_timeout"
	KeyDisconnectFailedResourcePack MessageKey = "disconnect_failed_resourcepack"
	KeyDisconnectNoTarget           MessageKey = "disconnect_no_target"
	KeyDisconnectFailedAuth         MessageKey = "disconnect_failed_auth"
)

// Table is `messages{<tag>{<key>:<json-text>}}` from the configuration
// surface (spec.md §6).
type Table map[string]map[MessageKey]string

// Resolver looks up a message by locale tag with language-only and
// default-locale fallback.
type Resolver struct {
	messages      Table
	defaultLocale string
}

// New builds a Resolver from the configured message table and default locale.
func New(messages Table, defaultLocale string) *Resolver {
	return &Resolver{messages: messages, defaultLocale: defaultLocale}
}

// Resolve looks up key for locale, falling back: exact tag -> language-only
// prefix -> default_locale -> empty string (P10).
func (r *Resolver) Resolve(locale string, key MessageKey) string {
	if locale != "" {
		if msgs, ok := r.messages[locale]; ok {
			if v, ok := msgs[key]; ok {
				return v
			}
		}
		if lang, _, found := strings.Cut(locale, "_"); found {
			if msgs, ok := r.messages[lang]; ok {
				if v, ok := msgs[key]; ok {
					return v
				}
			}
		}
	}
	if r.defaultLocale != "" {
		if msgs, ok := r.messages[r.defaultLocale]; ok {
			if v, ok := msgs[key]; ok {
				return v
			}
		}
	}
	return ""
}

// Render substitutes {player}/{server}/{reason}/{size} placeholders.
func Render(template string, fields map[string]string) string {
	out := template
	for k, v := range fields {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
