// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"errors"
	"fmt"
	"sync"
)

// =============================================================================
// CAPABILITY TAGS
// =============================================================================

// Tag is a capability label describing what a backend is good at.
type Tag string

// Capability tags. The set is closed; the scorer's preferred-tag table
// references these values.
const (
	TagCoding        Tag = "coding"
	TagCreative      Tag = "creative"
	TagAnalysis      Tag = "analysis"
	TagReasoning     Tag = "reasoning"
	TagVision        Tag = "vision"
	TagMultimodal    Tag = "multimodal"
	TagMultilingual  Tag = "multilingual"
	TagSpeed         Tag = "speed"
	TagCostEffective Tag = "cost-effective"
	TagGeneral       Tag = "general"
	TagSafety        Tag = "safety"
	TagBalanced      Tag = "balanced"
)

// TagSet is a set of capability tags.
type TagSet map[Tag]bool

// NewTagSet builds a TagSet from a list of tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = true
	}
	return s
}

// Has returns true if the set contains the tag.
func (s TagSet) Has(t Tag) bool {
	return s[t]
}

// Intersects returns true if the set shares any tag with other.
func (s TagSet) Intersects(other TagSet) bool {
	// Iterate the smaller set
	a, b := s, other
	if len(b) < len(a) {
		a, b = b, a
	}
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// =============================================================================
// LATENCY CLASS
// =============================================================================

// Latency is the declared latency class of a backend.
type Latency int

const (
	// LatencyFast indicates sub-second typical response times.
	LatencyFast Latency = iota
	// LatencyMedium indicates a few seconds of typical latency.
	LatencyMedium
	// LatencySlow indicates heavyweight models with long generation times.
	LatencySlow
)

// String returns the human-readable name of the latency class.
func (l Latency) String() string {
	switch l {
	case LatencyFast:
		return "fast"
	case LatencyMedium:
		return "medium"
	case LatencySlow:
		return "slow"
	default:
		return fmt.Sprintf("Latency(%d)", l)
	}
}

// =============================================================================
// PROVIDER FAMILY
// =============================================================================

// Family identifies the wire protocol family used to reach a backend.
// Each family has a distinct request/response shape handled by the
// execution adapter.
type Family string

const (
	// FamilyOpenAI covers OpenAI and OpenAI-compatible endpoints
	// (Copilot, self-hosted gateways).
	FamilyOpenAI Family = "openai"
	// FamilyAnthropic covers the Anthropic messages API.
	FamilyAnthropic Family = "anthropic"
	// FamilyGemini covers the Google generative language API.
	FamilyGemini Family = "gemini"
	// FamilyOllama covers local Ollama inference.
	FamilyOllama Family = "ollama"
)

// =============================================================================
// BACKEND DESCRIPTOR
// =============================================================================

// Descriptor describes one backend. Descriptors are constructed once at
// process start and treated as immutable; availability is the only field
// the registry will change afterwards (auth-failure downgrade).
type Descriptor struct {
	// Name is the unique, stable key for this backend.
	Name string `json:"name"`
	// Family selects the wire protocol used by the execution adapter.
	Family Family `json:"family"`
	// Model is the provider-specific model identifier.
	Model string `json:"model"`
	// Tags describes the backend's capabilities.
	Tags TagSet `json:"tags"`
	// CostPer1K is the cost in dollars per 1000 token-equivalent units.
	// Zero for local backends.
	CostPer1K float64 `json:"cost_per_1k"`
	// Latency is the declared latency class.
	Latency Latency `json:"latency"`
	// Available is true iff the required credential/resource was present
	// at registration time.
	Available bool `json:"available"`
}

// Validate checks descriptor well-formedness. A malformed descriptor is
// fatal to that one backend only, never to registry construction.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if d.Family == "" {
		return fmt.Errorf("%w: %s has no provider family", ErrInvalidDescriptor, d.Name)
	}
	if d.CostPer1K < 0 {
		return fmt.Errorf("%w: %s has negative cost", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidDescriptor is returned when a descriptor fails validation
	// at registration time.
	ErrInvalidDescriptor = errors.New("invalid backend descriptor")

	// ErrNotFound is returned by Get when no backend has the given name.
	ErrNotFound = errors.New("backend not found")
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is an insertion-ordered catalog of backend descriptors.
//
// Writes happen at startup (Register) and on auth-failure downgrade
// (MarkUnavailable); all routing-path access is read-only, so the
// registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]int
	order  []Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// Register stores or replaces a descriptor by name. Replacement keeps
// the original registration position so tie-break ordering stays stable
// across re-registration.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byName[d.Name]; ok {
		r.order[i] = d
		return nil
	}
	r.byName[d.Name] = len(r.order)
	r.order = append(r.order, d)
	return nil
}

// Get returns the descriptor with the given name.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.order[i], nil
}

// List returns all descriptors in registration order. The returned
// slice is a copy; callers may not mutate registry state through it.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the descriptors currently marked available, in
// registration order.
func (r *Registry) Available() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, d := range r.order {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// MarkUnavailable clears the availability flag for a backend. Used when
// a call fails authentication after registration; descriptors are never
// deleted.
func (r *Registry) MarkUnavailable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byName[name]; ok {
		r.order[i].Available = false
	}
}
