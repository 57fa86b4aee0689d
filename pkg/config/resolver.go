package config

import (
	"github.com/tauraamui/idlesqueeze/internal/config"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}
