// Package metrics exposes Prometheus counters for the article and relation
// services.
//
// Collectors are registered on the Registerer passed to New. A nil
// Registerer leaves them unregistered, which is what tests want: every test
// gets fresh counters and nothing collides on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conduit"

// Relation label values.
const (
	RelationFavorite = "favorite"
	RelationFollow   = "follow"
)

// Op label values.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// Outcome label values for relation transitions.
const (
	// OutcomeApplied means an edge was written or deleted.
	OutcomeApplied = "applied"
	// OutcomeNoop means the edge was already in the requested state.
	OutcomeNoop = "noop"
	// OutcomeConflictAbsorbed means a concurrent add won the insert race and
	// this call became a no-op.
	OutcomeConflictAbsorbed = "conflict_absorbed"
	OutcomeError            = "error"
)

// Article operation label values.
const (
	ArticleCreate = "create"
	ArticleUpdate = "update"
	ArticleDelete = "delete"
)

type Metrics struct {
	// RelationTransitions counts favorite and follow toggles.
	// Labels: relation (favorite, follow), op (add, remove), outcome
	RelationTransitions *prometheus.CounterVec

	// ArticleMutations counts successful article writes.
	// Labels: op (create, update, delete)
	ArticleMutations *prometheus.CounterVec

	// SlugRetries counts slug regenerations after a collision.
	SlugRetries prometheus.Counter
}

// New creates the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RelationTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relation_transitions_total",
				Help:      "Favorite and follow toggles by relation, operation and outcome",
			},
			[]string{"relation", "op", "outcome"},
		),
		ArticleMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "article_mutations_total",
				Help:      "Successful article writes by operation",
			},
			[]string{"op"},
		),
		SlugRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slug_retries_total",
				Help:      "Slug regenerations after a uniqueness conflict",
			},
		),
	}
}

// RecordRelation counts one relation transition. It is safe on a nil
// receiver.
func (m *Metrics) RecordRelation(relation, op, outcome string) {
	if m == nil {
		return
	}
	m.RelationTransitions.WithLabelValues(relation, op, outcome).Inc()
}

// RecordArticle counts one successful article write. It is safe on a nil
// receiver.
func (m *Metrics) RecordArticle(op string) {
	if m == nil {
		return
	}
	m.ArticleMutations.WithLabelValues(op).Inc()
}

// RecordSlugRetry counts one slug regeneration. It is safe on a nil receiver.
func (m *Metrics) RecordSlugRetry() {
	if m == nil {
		return
	}
	m.SlugRetries.Inc()
}
