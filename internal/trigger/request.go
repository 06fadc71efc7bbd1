package trigger

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/0xPuncker/cron-panel/pkg/identity"
)

type Action string

const (
	ActionRun        Action = "run"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

// Request parameter names.
const (
	ParamAction = "zt-action"
	ParamHook   = "zt-hook"
	ParamTime   = "zt-time"
	ParamHash   = "zt-hash"
	ParamNonce  = "_nonce"
)

func (a Action) Known() bool {
	switch a {
	case ActionRun, ActionCancel, ActionReschedule:
		return true
	}
	return false
}

// Request is one manual trigger, taken verbatim from the link the panel rendered.
type Request struct {
	Action Action
	Hook   string
	Time   int64
	Hash   string
	Nonce  string
}

// ParseRequest reads a trigger from explicit form values. A malformed time is the
// only thing rejected here; everything else is left to Validate.
func ParseRequest(values url.Values) (Request, error) {
	req := Request{
		Action: Action(strings.ToLower(identity.Sanitize(values.Get(ParamAction)))),
		Hook:   identity.Sanitize(values.Get(ParamHook)),
		Hash:   identity.Sanitize(values.Get(ParamHash)),
		Nonce:  strings.TrimSpace(values.Get(ParamNonce)),
	}

	raw := strings.TrimSpace(values.Get(ParamTime))
	if raw == "" {
		return req, &ValidationError{Field: "time", Reason: "missing"}
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return req, &ValidationError{Field: "time", Reason: "not an integer", Err: err}
	}
	req.Time = at

	return req, nil
}

// Values encodes the request the way ParseRequest expects it back.
func (r Request) Values() url.Values {
	v := url.Values{}
	v.Set(ParamAction, string(r.Action))
	v.Set(ParamHook, r.Hook)
	v.Set(ParamTime, strconv.FormatInt(r.Time, 10))
	v.Set(ParamHash, r.Hash)
	if r.Nonce != "" {
		v.Set(ParamNonce, r.Nonce)
	}
	return v
}
