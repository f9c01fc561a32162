// internal/common/aws/config.go
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ClientConfig selects the region and optional shared-config profile used to
// build service clients. Empty values fall back to the default credential chain.
type ClientConfig struct {
	Region  string
	Profile string
}

func loadConfig(ctx context.Context, cfg ClientConfig) (awssdk.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}
