package idle

import (
	"context"
	"fmt"
)

// Method names accepted by Invoke.
const (
	MethodInit    = "init"
	MethodDestroy = "destroy"
)

// Invoke calls a method by name. An empty name means init. init takes an
// optional *Config (or Config) argument; destroy takes none.
func (s *Selection) Invoke(ctx context.Context, method string, args ...any) (*Selection, error) {
	switch method {
	case "", MethodInit:
		cfg, err := configArg(args)
		if err != nil {
			return s, err
		}
		return s.Init(ctx, cfg)
	case MethodDestroy:
		return s.Destroy(ctx)
	default:
		return s, fmt.Errorf("%w: method %q does not exist", ErrInvalidMethod, method)
	}
}

func configArg(args []any) (*Config, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("%w: init takes at most one argument, got %d", ErrInvalidArgument, len(args))
	}

	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case *Config:
		return v, nil
	case Config:
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: init expects *idle.Config, got %T", ErrInvalidArgument, args[0])
	}
}
