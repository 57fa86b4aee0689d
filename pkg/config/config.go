package config

import (
	"github.com/tauraamui/idlesqueeze/internal/config"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

type CreateResolver interface {
	configdef.CreateResolver
}

func DefaultCreateResolver() CreateResolver {
	return config.DefaultCreateResolver()
}
