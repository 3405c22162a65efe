package cmd

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/pinforge/actionpin/application"
	"github.com/pinforge/actionpin/config"
	"github.com/pinforge/actionpin/domain"
	"github.com/pinforge/actionpin/infrastructure/pinner/ratchet"
	"github.com/pinforge/actionpin/infrastructure/workspace"
)

// injectDispatchService assembles the dispatch service and its
// collaborators through a dig container.
func injectDispatchService(cfg *config.Config) (*application.DispatchService, error) {
	container := dig.New()

	constructors := []interface{}{
		func() *config.Config { return cfg },
		buildProviderRegistry,
		workspace.New,
		newPinner,
		application.NewDispatchService,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return nil, fmt.Errorf("failed to register dependencies: %w", err)
		}
	}

	var svc *application.DispatchService
	if err := container.Invoke(func(s *application.DispatchService) {
		svc = s
	}); err != nil {
		return nil, fmt.Errorf("failed to assemble dispatch service: %w", err)
	}

	return svc, nil
}

func newPinner(cfg *config.Config) domain.Pinner {
	return ratchet.New(cfg.Pinner.Binary, cfg.CleanComment)
}
