package history

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/pihole/pihole-api/internal/apierror"
)

// HistoryParams is the validated query-string input to the history
// endpoint (§4.G), grounded on original_source's
// `routes::stats::history::endpoints::HistoryParams`.
type HistoryParams struct {
	From     *int64 `validate:"omitempty"`
	Until    *int64 `validate:"omitempty"`
	Domain   string
	Client   string
	Upstream string
	Cursor   string
	Limit    int `validate:"omitempty,min=1,max=10000"`
}

var validate = validator.New()

// ParseHistoryParams parses and validates a history request's query string.
// Unset numeric fields remain nil/zero, which the filter pipeline (Pipeline)
// treats as "unbounded"/"disabled" per §4.F.
func ParseHistoryParams(q url.Values) (HistoryParams, error) {
	p := HistoryParams{
		Domain:   q.Get("domain"),
		Client:   q.Get("client"),
		Upstream: q.Get("upstream"),
		Cursor:   q.Get("cursor"),
		Limit:    100,
	}

	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, apierror.New(apierror.KindBadRequest, "invalid from timestamp")
		}
		p.From = &n
	}
	if v := q.Get("until"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, apierror.New(apierror.KindBadRequest, "invalid until timestamp")
		}
		p.Until = &n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apierror.New(apierror.KindBadRequest, "invalid limit")
		}
		p.Limit = n
	}

	if err := validate.Struct(p); err != nil {
		return p, apierror.Wrap(apierror.KindBadRequest, "invalid history parameters", err)
	}
	if p.From != nil && p.Until != nil && *p.From >= *p.Until {
		return p, apierror.New(apierror.KindBadRequest, "from must be less than until")
	}

	return p, nil
}
