package cipher

import stdcipher "crypto/cipher"

// cfb8 implements 8-bit cipher feedback mode: unlike the stdlib's
// NewCFBEncrypter/NewCFBDecrypter (which feed back a full block), CFB8
// encrypts one byte at a time and shifts that single byte into the shift
// register. The game protocol specifies CFB8 explicitly, so the stdlib's
// block-granularity CFB cannot be reused here.
type cfb8 struct {
	block     stdcipher.Block
	shift     []byte // shift register, len == block size
	tmp       []byte // scratch for the block cipher output
	decrypt   bool
}

func newCFB8(block stdcipher.Block, iv []byte, decrypt bool) *cfb8 {
	bs := block.BlockSize()
	shift := make([]byte, bs)
	copy(shift, iv)
	return &cfb8{
		block:   block,
		shift:   shift,
		tmp:     make([]byte, bs),
		decrypt: decrypt,
	}
}

func newCFB8Encrypter(block stdcipher.Block, iv []byte) stdcipher.Stream {
	return newCFB8(block, iv, false)
}

func newCFB8Decrypter(block stdcipher.Block, iv []byte) stdcipher.Stream {
	return newCFB8(block, iv, true)
}

// XORKeyStream processes src one byte at a time so dst and src may overlap
// (dst == src is the common in-place case used by Stream).
func (c *cfb8) XORKeyStream(dst, src []byte) {
	bs := len(c.shift)
	for i := range src {
		c.block.Encrypt(c.tmp, c.shift)
		keyByte := c.tmp[0]
		cipherByte := src[i] ^ keyByte

		var feedback byte
		if c.decrypt {
			feedback = src[i]
			dst[i] = cipherByte
		} else {
			feedback = cipherByte
			dst[i] = cipherByte
		}

		copy(c.shift, c.shift[1:bs])
		c.shift[bs-1] = feedback
	}
}
