package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// Request parameter names shared with clients.
const (
	ParamCriteria = "CRITERIA"
	ParamAction   = "ACT"

	ParamSelector   = "searchSelector"
	ParamOperator   = "searchOperator"
	ParamValueFloat = "searchValueFloat"
	ParamValueStr   = "searchValueStr"
	ParamValueBool  = "searchValueBool"
	ParamValueDate  = "searchValueDate"
	ParamValueTime  = "searchValueTime"
	ParamValueList  = "searchValueList"

	selectionPrefix = "search"
)

// ActionAdd is the action that appends the current selection.
const ActionAdd = "ADD"

// Action is a criteria list mutation. Remove is only meaningful when Add is
// false.
type Action struct {
	Add    bool
	Remove int
}

// ParseAction reads an action parameter: "ADD" or an index to remove. Any
// other value is not an action.
func ParseAction(s string) (Action, bool) {
	s = strings.TrimSpace(s)
	if s == ActionAdd {
		return Action{Add: true}, true
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return Action{}, false
	}
	return Action{Remove: i}, true
}

// Result is the outcome of one filter request.
type Result struct {
	Entity       string              `json:"entity"`
	Criteria     string              `json:"criteria"`
	Predicate    predicate.Predicate `json:"-"`
	Descriptions Descriptions        `json:"descriptions"`
	Records      []types.Record      `json:"records"`
	Count        int                 `json:"count"`
}

// Session applies criteria mutations and runs filters for one request.
type Session struct {
	engine   *Engine
	executor Executor
	logger   *slog.Logger
}

// NewSession creates a session. executor may be nil for sessions that only
// edit criteria.
func NewSession(engine *Engine, executor Executor, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{engine: engine, executor: executor, logger: logger}
}

// ApplyMutation applies action to the serialized prior list and returns the
// new serialized list. Unusable selections and out of range removals leave
// the list unchanged.
func (s *Session) ApplyMutation(ctx context.Context, entity, prior string, action Action, sel types.Selection) (string, error) {
	list := Parse(prior)

	if action.Add {
		reg, err := s.engine.Registry(ctx, entity)
		if err != nil {
			return "", err
		}
		d, ok := reg.Lookup(sel.Field)
		if !ok {
			s.logger.Debug("ignoring selection on unknown field", "entity", entity, "field", sel.Field)
			return Serialize(list), nil
		}
		if c, ok := d.ExtractNewCriterion(sel); ok {
			list = list.Append(c)
		}
		return Serialize(list), nil
	}

	if next, ok := list.Remove(action.Remove); ok {
		list = next
	} else {
		s.logger.Debug("ignoring removal out of range", "entity", entity, "index", action.Remove, "size", len(list))
	}
	return Serialize(list), nil
}

// ApplyParams applies the mutation described by a request parameter map in
// place: CRITERIA is rewritten, while ACT and every selection parameter are
// removed. Without an action only the selection parameters are purged.
func (s *Session) ApplyParams(ctx context.Context, entity string, params map[string]string) error {
	prior := params[ParamCriteria]
	if raw, ok := params[ParamAction]; ok {
		if action, ok := ParseAction(raw); ok {
			next, err := s.ApplyMutation(ctx, entity, prior, action, SelectionFromParams(params))
			if err != nil {
				return err
			}
			params[ParamCriteria] = next
		}
		delete(params, ParamAction)
	}
	for k := range params {
		if strings.HasPrefix(k, selectionPrefix) {
			delete(params, k)
		}
	}
	return nil
}

// SelectionFromParams reads the selection slots from request parameters.
func SelectionFromParams(params map[string]string) types.Selection {
	return types.Selection{
		Field:    params[ParamSelector],
		Operator: params[ParamOperator],
		Numeric:  params[ParamValueFloat],
		Text:     params[ParamValueStr],
		Boolean:  params[ParamValueBool],
		Date:     params[ParamValueDate],
		Time:     params[ParamValueTime],
		Choice:   params[ParamValueList],
	}
}

// Filter builds the predicate of the serialized criteria and runs it through
// the session's executor.
func (s *Session) Filter(ctx context.Context, entity, criteria string, page types.Page) (*Result, error) {
	reg, err := s.engine.Registry(ctx, entity)
	if err != nil {
		return nil, err
	}
	list := Parse(criteria)
	pred, descs, err := BuildQuery(list, reg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Entity:       entity,
		Criteria:     Serialize(list),
		Predicate:    pred,
		Descriptions: descs,
	}
	if s.executor == nil {
		return result, nil
	}

	s.logger.Debug("executing search", "entity", entity, "predicate", pred.String())
	rs, err := s.executor.Execute(ctx, entity, pred, page)
	if err != nil {
		return nil, fmt.Errorf("execute search on %s: %w", entity, err)
	}
	result.Records = rs.Records
	result.Count = rs.Count
	return result, nil
}
