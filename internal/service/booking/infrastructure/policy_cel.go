// internal/service/booking/infrastructure/policy_cel.go
package infrastructure

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"tixhub/internal/service/booking/domain/port"
)

// CELPolicyAdapter 是 port.BookingPolicy 的 cel-go 实现。
// 策略表达式来自配置，在启动时编译一次，请求路径上只做求值。
type CELPolicyAdapter struct {
	program cel.Program
}

// NewCELPolicyAdapter 编译策略表达式。表达式必须返回 bool。
func NewCELPolicyAdapter(expression string) (*CELPolicyAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.IntType),
		cel.Variable("max_per_request", cel.IntType),
		cel.Variable("total_price", cel.DoubleType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("event_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile booking policy %q: %w", expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("booking policy %q must evaluate to bool, got %s", expression, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program: %w", err)
	}
	return &CELPolicyAdapter{program: program}, nil
}

// Allow 求值准入策略。
func (a *CELPolicyAdapter) Allow(_ context.Context, fact port.PolicyFact) (bool, error) {
	out, _, err := a.program.Eval(map[string]interface{}{
		"quantity":        fact.Quantity,
		"max_per_request": fact.MaxPerRequest,
		"total_price":     fact.TotalPrice,
		"user_id":         fact.UserID,
		"event_id":        fact.EventID,
	})
	if err != nil {
		return false, fmt.Errorf("policy evaluation error: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected policy result type %T", out.Value())
	}
	return allowed, nil
}
