package main

import (
	"context"
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/gosuda/passage/internal/adapter"
	"github.com/gosuda/passage/internal/adapter/discovery"
	"github.com/gosuda/passage/internal/adapter/resourcepack"
	"github.com/gosuda/passage/internal/adapter/status"
	"github.com/gosuda/passage/internal/adapter/strategy"
	"github.com/gosuda/passage/internal/config"
)

// paramString/paramInt/paramBool pull a typed value out of an
// AdapterConfig's raw params map, since YAML decodes scalars into `any`.
func paramString(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func paramInt(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

func paramInt32(params map[string]any, key string, def int32) int32 {
	return int32(paramInt(params, key, int(def)))
}

func paramBool(params map[string]any, key string, def bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func paramStringSlice(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func paramStringMap(params map[string]any, key string) map[string]string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

func paramTargetList(params map[string]any, key string) []adapter.Target {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]adapter.Target, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, adapter.Target{
			ID:       paramString(m, "id", ""),
			Host:     paramString(m, "host", ""),
			Port:     paramInt(m, "port", 0),
			Metadata: paramStringMap(m, "metadata"),
		})
	}
	return out
}

// buildStatus resolves the configured status supplier variant (spec.md §4.9,
// §6 "[status{adapter, <variant-params>}]").
func buildStatus(cfg config.AdapterConfig, minVersion, maxVersion int32) (status.Supplier, error) {
	switch cfg.Adapter {
	case "fixed":
		out := status.Output{
			Version: status.Version{
				Name:     paramString(cfg.Params, "version_name", "Passage"),
				Protocol: paramInt32(cfg.Params, "protocol", maxVersion),
			},
			Players: status.Players{
				Online: paramInt(cfg.Params, "players_online", 0),
				Max:    paramInt(cfg.Params, "players_max", 20),
			},
			Description: paramString(cfg.Params, "description", ""),
			Favicon:     paramString(cfg.Params, "favicon", ""),
			MinVersion:  minVersion,
			MaxVersion:  maxVersion,
		}
		return status.NewFixed(out), nil
	case "http":
		ttl := time.Duration(paramInt(cfg.Params, "ttl_ms", 2000)) * time.Millisecond
		return status.NewHTTP(paramString(cfg.Params, "url", ""), ttl, minVersion, maxVersion), nil
	case "rpc":
		return status.NewRPC(paramString(cfg.Params, "url", ""), nil, minVersion, maxVersion), nil
	default:
		return nil, fmt.Errorf("unknown status adapter %q", cfg.Adapter)
	}
}

// buildDiscovery resolves the configured target-discovery variant (spec.md
// §4.9, §5 "container-orchestrator discovery"). The returned start function
// is non-nil only for variants that run a background watch; callers launch
// it with the process lifecycle context once the rest of the server is up.
func buildDiscovery(cfg config.AdapterConfig) (discovery.Discoverer, func(ctx context.Context), error) {
	switch cfg.Adapter {
	case "fixed":
		return discovery.NewFixed(paramTargetList(cfg.Params, "targets")), nil, nil
	case "http":
		ttl := time.Duration(paramInt(cfg.Params, "ttl_ms", 2000)) * time.Millisecond
		return discovery.NewHTTP(paramString(cfg.Params, "url", ""), ttl), nil, nil
	case "rpc":
		return discovery.NewRPC(paramString(cfg.Params, "url", ""), nil), nil, nil
	case "kubernetes":
		clientset, err := buildKubernetesClientset(paramString(cfg.Params, "kubeconfig", ""))
		if err != nil {
			return nil, nil, fmt.Errorf("build kubernetes clientset: %w", err)
		}
		kd := discovery.NewKubernetes(
			clientset,
			paramString(cfg.Params, "namespace", "default"),
			paramString(cfg.Params, "label_selector", ""),
			paramInt(cfg.Params, "default_port", 25565),
		)
		start := func(ctx context.Context) { go kd.Run(ctx) }
		return kd, start, nil
	default:
		return nil, nil, fmt.Errorf("unknown target_discovery adapter %q", cfg.Adapter)
	}
}

// buildStrategy resolves the configured target-selection strategy variant
// (spec.md §4.9, "player_fill strategy details").
func buildStrategy(cfg config.AdapterConfig) (strategy.Strategy, error) {
	switch cfg.Adapter {
	case "any":
		return strategy.Any{}, nil
	case "player_fill":
		rawFilters, _ := cfg.Params["target_filters"].([]any)
		filters := make([]strategy.Filter, 0, len(rawFilters))
		for _, rf := range rawFilters {
			m, ok := rf.(map[string]any)
			if !ok {
				continue
			}
			filters = append(filters, strategy.Filter{
				ServerHost: paramString(m, "server_host", ""),
				Identifier: paramString(m, "identifier", ""),
				Metadata:   paramStringMap(m, "metadata"),
				AllowList:  paramStringSlice(m, "allow_list"),
			})
		}
		return strategy.PlayerFill{
			Field:      paramString(cfg.Params, "field", "players_online"),
			MaxPlayers: paramInt(cfg.Params, "max_players", 0),
			Filters:    filters,
		}, nil
	case "rpc":
		return strategy.NewRPC(paramString(cfg.Params, "url", ""), nil), nil
	default:
		return nil, fmt.Errorf("unknown target_strategy adapter %q", cfg.Adapter)
	}
}

// buildResourcePack resolves the configured resource-pack policy variant
// (spec.md §4.10 Configuration step 3). Absent configuration defaults to
// None, since resource packs are an optional surface.
func buildResourcePack(cfg config.AdapterConfig) (resourcepack.Policy, error) {
	switch cfg.Adapter {
	case "", "none":
		return resourcepack.None{}, nil
	case "fixed":
		rawPacks, _ := cfg.Params["packs"].([]any)
		packs := make([]resourcepack.Pack, 0, len(rawPacks))
		for _, rp := range rawPacks {
			m, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			prompt := paramString(m, "prompt", "")
			packs = append(packs, resourcepack.Pack{
				URL:       paramString(m, "url", ""),
				Hash:      paramString(m, "hash", ""),
				Forced:    paramBool(m, "forced", false),
				Prompt:    prompt,
				HasPrompt: prompt != "",
			})
		}
		return resourcepack.NewFixed(packs), nil
	default:
		return nil, fmt.Errorf("unknown resourcepack adapter %q", cfg.Adapter)
	}
}

func buildKubernetesClientset(kubeconfigPath string) (kubernetes.Interface, error) {
	var restConfig *rest.Config
	var err error
	if kubeconfigPath != "" {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		restConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}
