package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindReplicate  Kind = "replicate"
	KindAnthropic  Kind = "anthropic"
	KindOpenAI     Kind = "openai"
	KindOpenRouter Kind = "openrouter"
	KindGoogle     Kind = "google"
)

// Kinds lists every supported backend in display order.
var Kinds = []Kind{KindReplicate, KindAnthropic, KindOpenAI, KindOpenRouter, KindGoogle}

type Options struct {
	Kind    Kind
	BaseURL string
	// Token overrides the environment, keyring and credential file.
	Token string
}

func New(opts Options) (Provider, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(opts.Kind)))) {
	case KindReplicate, "":
		return NewReplicate(opts.BaseURL, opts.Token), nil
	case KindAnthropic:
		return NewAnthropic(opts.BaseURL, opts.Token), nil
	case KindOpenAI:
		return NewOpenAI(opts.BaseURL, "openai", opts.Token), nil
	case KindOpenRouter:
		return NewOpenRouter(opts.BaseURL, opts.Token), nil
	case KindGoogle:
		return NewGoogle(opts.BaseURL, opts.Token), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Kind)
	}
}

type modelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// DiscoverModels lists models, trimmed, de-duplicated and sorted.
func DiscoverModels(ctx context.Context, p modelLister) ([]string, error) {
	raw, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	models := make([]string, 0, len(raw))
	for _, m := range raw {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		models = append(models, m)
	}
	sort.Strings(models)
	return models, nil
}
