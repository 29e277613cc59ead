package crypto

// Link applies the codec to payloads crossing one connection. A Link built
// with a nil codec passes payloads through unchanged, so plaintext and
// encrypted deployments share one code path.
type Link struct {
	codec *Codec
}

func NewLink(codec *Codec) Link {
	return Link{codec: codec}
}

// Enabled reports whether payloads are encrypted.
func (l Link) Enabled() bool { return l.codec != nil }

// SealText prepares a text payload for a frame: base64(blob) when enabled.
func (l Link) SealText(s string) ([]byte, error) {
	if l.codec == nil {
		return []byte(s), nil
	}
	enc, err := l.codec.EncryptString(s)
	if err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

// OpenText reverses SealText.
func (l Link) OpenText(payload []byte) (string, error) {
	if l.codec == nil {
		return string(payload), nil
	}
	return l.codec.DecryptString(string(payload))
}

// SealBytes prepares a binary payload (file chunk, audio): raw blob when enabled.
func (l Link) SealBytes(p []byte) ([]byte, error) {
	if l.codec == nil {
		return p, nil
	}
	return l.codec.Encrypt(p)
}

// OpenBytes reverses SealBytes.
func (l Link) OpenBytes(p []byte) ([]byte, error) {
	if l.codec == nil {
		return p, nil
	}
	return l.codec.Decrypt(p)
}
