package stack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/modules/apigateway"
	"github.com/stackform/stackform/pkg/modules/cloudfront"
	"github.com/stackform/stackform/pkg/modules/codebuild"
	"github.com/stackform/stackform/pkg/modules/codedeploy"
	"github.com/stackform/stackform/pkg/modules/codepipeline"
	"github.com/stackform/stackform/pkg/modules/cognito"
	"github.com/stackform/stackform/pkg/modules/dynamodb"
	"github.com/stackform/stackform/pkg/modules/eventbridge"
	"github.com/stackform/stackform/pkg/modules/kms"
	"github.com/stackform/stackform/pkg/modules/lambda"
	"github.com/stackform/stackform/pkg/modules/route53"
	"github.com/stackform/stackform/pkg/modules/s3"
	"github.com/stackform/stackform/pkg/modules/ses"
	"github.com/stackform/stackform/pkg/modules/sns"
	"github.com/stackform/stackform/pkg/modules/ssm"
	"github.com/stackform/stackform/pkg/modules/stepfunctions"
)

// Factory creates an empty config for a module kind.
type Factory func() contract.Module

// Registry maps module kinds to their config types.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry with all built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register(apigateway.Kind, func() contract.Module { return &apigateway.Config{} })
	r.Register(cloudfront.Kind, func() contract.Module { return &cloudfront.Config{} })
	r.Register(codebuild.Kind, func() contract.Module { return &codebuild.Config{} })
	r.Register(codedeploy.Kind, func() contract.Module { return &codedeploy.Config{} })
	r.Register(codepipeline.Kind, func() contract.Module { return &codepipeline.Config{} })
	r.Register(cognito.Kind, func() contract.Module { return &cognito.Config{} })
	r.Register(dynamodb.Kind, func() contract.Module { return &dynamodb.Config{} })
	r.Register(eventbridge.Kind, func() contract.Module { return &eventbridge.Config{} })
	r.Register(kms.Kind, func() contract.Module { return &kms.Config{} })
	r.Register(lambda.Kind, func() contract.Module { return &lambda.Config{} })
	r.Register(route53.ZoneKind, func() contract.Module { return &route53.ZoneConfig{} })
	r.Register(route53.RecordKind, func() contract.Module { return &route53.RecordConfig{} })
	r.Register(s3.Kind, func() contract.Module { return &s3.Config{} })
	r.Register(ses.Kind, func() contract.Module { return &ses.Config{} })
	r.Register(sns.Kind, func() contract.Module { return &sns.Config{} })
	r.Register(ssm.Kind, func() contract.Module { return &ssm.Config{} })
	r.Register(stepfunctions.Kind, func() contract.Module { return &stepfunctions.Config{} })

	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Has reports whether the kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Decode builds a typed module config from a raw config block. The block
// round-trips through JSON so the module types' json tags drive the
// mapping.
func (r *Registry) Decode(kind string, config map[string]interface{}) (contract.Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown module kind: %s", kind)
	}

	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	module := factory()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(module); err != nil {
		return nil, fmt.Errorf("failed to decode %s config: %w", kind, err)
	}
	return module, nil
}
