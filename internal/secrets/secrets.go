// Package secrets fills unset credential settings from SSM Parameter Store.
package secrets

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Target names one parameter under the prefix and the setting it fills.
type Target struct {
	Name string
	Dest *string
}

// Fill reads {prefix}/{name} for every target whose destination is empty.
// Values set by flag or environment are never overwritten, and parameters
// that do not exist are skipped. It returns the names it filled.
func Fill(ctx context.Context, client SSMAPI, prefix string, targets []Target, logger log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Nop()
	}
	prefix = "/" + strings.Trim(prefix, "/")

	var filled []string
	for _, t := range targets {
		if t.Dest == nil || *t.Dest != "" {
			continue
		}
		name := prefix + "/" + t.Name
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			var nf *ssmtypes.ParameterNotFound
			if errors.As(err, &nf) {
				logger.Debug(ctx, "ssm parameter not found, leaving setting empty", "parameter", name)
				continue
			}
			return filled, xerrors.Wrapf(err, "get SSM parameter %s", name)
		}
		if out.Parameter == nil || out.Parameter.Value == nil {
			continue
		}
		*t.Dest = strings.TrimSpace(*out.Parameter.Value)
		filled = append(filled, t.Name)
	}
	return filled, nil
}
