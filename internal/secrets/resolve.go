package secrets

import (
	"context"

	"github.com/heriman22/blog-main/internal/xerrors"
)

// Getter reads a named secret.
type Getter interface {
	Get(ctx context.Context, name string) (string, error)
}

// Resolve returns literal when set, else the value of param from g. With
// neither configured it returns "" and the webhook rejects every call.
func Resolve(ctx context.Context, literal, param string, g Getter) (string, error) {
	switch {
	case literal != "" && param != "":
		return "", xerrors.New("secret literal and parameter are mutually exclusive")
	case literal != "":
		return literal, nil
	case param == "":
		return "", nil
	case g == nil:
		return "", xerrors.Newf("no parameter store configured for %s", param)
	}
	v, err := g.Get(ctx, param)
	if err != nil {
		return "", xerrors.Wrap(err, "resolve webhook secret")
	}
	return v, nil
}
