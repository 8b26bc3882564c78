package secrets

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/heriman22/blog-main/internal/xerrors"
)

// ParameterAPI is the subset of *ssm.Client used here.
type ParameterAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM reads decrypted parameters.
type SSM struct {
	client ParameterAPI
}

// NewSSM builds a client from awsCfg, or from the default credential chain
// when awsCfg is nil.
func NewSSM(ctx context.Context, awsCfg *aws.Config) (*SSM, error) {
	var c aws.Config
	if awsCfg != nil {
		c = *awsCfg
	} else {
		var err error
		c, err = config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, xerrors.Wrap(err, "load AWS config")
		}
	}
	return &SSM{client: ssm.NewFromConfig(c)}, nil
}

func NewSSMWithClient(client ParameterAPI) *SSM {
	return &SSM{client: client}
}

// Get returns the trimmed parameter value. An absent or blank value is an error.
func (s *SSM) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return v, nil
}
