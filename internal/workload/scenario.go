package workload

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

//go:embed scenario.schema.json
var scenarioSchema []byte

// ErrScenario is returned for a scenario that does not parse or does not
// match the scenario schema.
var ErrScenario = errors.New("invalid scenario")

// Scenario operations.
const (
	StepInsert     = "insert"
	StepRemove     = "remove"
	StepGet        = "get"
	StepPopFirst   = "pop_first"
	StepPopLast    = "pop_last"
	StepClear      = "clear"
	StepValidate   = "validate"
	StepExpectKeys = "expect_keys"
	StepExpectDump = "expect_dump"
	StepExpectLen  = "expect_len"
)

// Scenario is a scripted sequence of map operations and expectations.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scenario operation. Want and Found, when set, are compared
// against the value and presence returned by remove, get and the pops.
type Step struct {
	Op    string  `yaml:"op"`
	Key   int64   `yaml:"key"`
	Value string  `yaml:"value"`
	Want  *string `yaml:"want"`
	Found *bool   `yaml:"found"`
	Keys  []int64 `yaml:"keys"`
	Len   int     `yaml:"len"`
	Dump  string  `yaml:"dump"`
}

// StepFailure describes an expectation that did not hold.
type StepFailure struct {
	Index   int
	Op      string
	Message string

	// Diff is set for dump mismatches; see LineDiff.
	Diff string
}

// ReplayReport is the outcome of a replayed scenario.
type ReplayReport struct {
	Name     string
	Steps    int
	Failures []StepFailure
}

// Passed reports whether every expectation held.
func (rr *ReplayReport) Passed() bool {
	return len(rr.Failures) == 0
}

// ParseScenario decodes a YAML scenario after validating it against the
// embedded schema.
func ParseScenario(data []byte) (*Scenario, error) {
	var document any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScenario, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(scenarioSchema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScenario, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrScenario, strings.Join(problems, "; "))
	}

	var scenario Scenario

	err = yaml.Unmarshal(data, &scenario)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScenario, err)
	}

	return &scenario, nil
}

// Replay runs the scenario on a fresh map of int64 to string. Expectation
// failures are collected in the report; the returned error is reserved for
// a leaking allocator.
func (r *Runner) Replay(ctx context.Context, scenario *Scenario) (*ReplayReport, error) {
	ctx, span := r.tracer.Start(ctx, "rbmap.replay", trace.WithAttributes(
		attribute.String("scenario.name", scenario.Name),
		attribute.Int("scenario.steps", len(scenario.Steps)),
	))
	defer span.End()

	alloc := rbtree.NewCountingAllocator[int64, string](nil)
	tree := rbtree.NewIn[int64, string](alloc)
	report := &ReplayReport{Name: scenario.Name}

	for idx, step := range scenario.Steps {
		report.Steps++

		failure, ok := applyStep(tree, step)
		if !ok {
			failure.Index, failure.Op = idx, step.Op
			report.Failures = append(report.Failures, failure)

			r.logger.DebugContext(ctx, "scenario step failed", "step", idx, "op", step.Op, "message", failure.Message)
		}
	}

	tree.Clear()

	err := verifyReleased(alloc)
	if err != nil {
		r.recordFailure(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocator leak")

		return report, err
	}

	if !report.Passed() {
		r.recordFailure(ctx, ErrCheck)
		span.SetStatus(codes.Error, fmt.Sprintf("%d failed steps", len(report.Failures)))
	}

	return report, nil
}

func applyStep(tree *rbtree.Map[int64, string], step Step) (StepFailure, bool) {
	switch step.Op {
	case StepInsert:
		tree.Insert(step.Key, step.Value)
	case StepRemove:
		value, found := tree.Remove(step.Key)

		return expectValue(step, value, found)
	case StepGet:
		value, found := tree.Get(step.Key)

		return expectValue(step, value, found)
	case StepPopFirst:
		_, value, found := tree.PopFirst()

		return expectValue(step, value, found)
	case StepPopLast:
		_, value, found := tree.PopLast()

		return expectValue(step, value, found)
	case StepClear:
		tree.Clear()
	case StepValidate:
		err := tree.Validate()
		if err != nil {
			return StepFailure{Message: err.Error()}, false
		}
	case StepExpectKeys:
		got := slices.Collect(tree.Keys())
		if !slices.Equal(got, step.Keys) {
			return StepFailure{Message: fmt.Sprintf("keys %v, want %v", got, step.Keys)}, false
		}
	case StepExpectLen:
		if tree.Len() != step.Len {
			return StepFailure{Message: fmt.Sprintf("length %d, want %d", tree.Len(), step.Len)}, false
		}
	case StepExpectDump:
		got := tree.String()
		if got != step.Dump {
			return StepFailure{Message: "dump mismatch", Diff: LineDiff(step.Dump, got)}, false
		}
	default:
		return StepFailure{Message: "unknown op " + step.Op}, false
	}

	return StepFailure{}, true
}

func expectValue(step Step, value string, found bool) (StepFailure, bool) {
	if step.Found != nil && *step.Found != found {
		return StepFailure{Message: fmt.Sprintf("found %t, want %t", found, *step.Found)}, false
	}

	if step.Want != nil && (!found || value != *step.Want) {
		return StepFailure{Message: fmt.Sprintf("value %q (found %t), want %q", value, found, *step.Want)}, false
	}

	return StepFailure{}, true
}
