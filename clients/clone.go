package clients

import (
	"context"
	"fmt"
	"io"
)

// Clone asks the voice-cloning service to speak text in the reference
// speaker's voice and the persona's style. The reply is WAV bytes.
func (h *HTTP) Clone(ctx context.Context, url, text, style, refWav string) ([]byte, error) {
	resp, err := h.postForm(ctx, "clone", url+"/clone", form{
		fields:    map[string]string{"text": text, "style": style},
		fileField: "file",
		filePath:  refWav,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("clone read: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("clone: %w: empty audio", ErrDecode)
	}
	return b, nil
}
