package coach

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

// restCoach posts {prompt} to a generic endpoint that answers {tips: [...]}.
type restCoach struct {
	http  *clients.HTTP
	url   string
	token string
}

type restReq struct {
	Prompt string `json:"prompt"`
}

// Tips is a pointer so a reply without the key is told apart from an empty
// list.
type restResp struct {
	Tips *[]string `json:"tips"`
}

func newREST(cfg config.Coach, h *clients.HTTP) (*restCoach, error) {
	if cfg.URL == "" {
		return nil, errors.New("coach.url is required")
	}
	return &restCoach{http: h, url: cfg.URL, token: cfg.AuthToken}, nil
}

func (r *restCoach) generate(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	var hdr http.Header
	if r.token != "" {
		hdr = http.Header{"Authorization": {"Bearer " + r.token}}
	}
	var out restResp
	if err := r.http.PostJSON(ctx, "rest coach", r.url, hdr, restReq{Prompt: Prompt(gaps)}, &out); err != nil {
		return nil, err
	}
	if out.Tips == nil {
		return nil, fmt.Errorf("%w: no tips in reply", ErrMalformedResponse)
	}
	return *out.Tips, nil
}

func (r *restCoach) close() error {
	r.http.Client().CloseIdleConnections()
	return nil
}
