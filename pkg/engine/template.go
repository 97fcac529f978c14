package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// TemplateContext 模板变量的两命名空间映射。
// 模板中只能引用 input.* 与 context.* 两类变量。
type TemplateContext struct {
	// Input 调用方运行时输入变量
	Input map[string]interface{}
	// Context 上下文环境变量
	Context map[string]interface{}
}

// NewTemplateContext 创建空的模板变量映射
func NewTemplateContext() *TemplateContext {
	return &TemplateContext{
		Input:   make(map[string]interface{}),
		Context: make(map[string]interface{}),
	}
}

// Lookup 按 "namespace.key" 路径查找变量值
func (tc *TemplateContext) Lookup(path string) (interface{}, bool) {
	if tc == nil {
		return nil, false
	}

	namespace, key, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}

	switch namespace {
	case "input":
		v, ok := tc.Input[key]
		return v, ok
	case "context":
		v, ok := tc.Context[key]
		return v, ok
	}
	return nil, false
}

// 模板变量占位符格式: {{input.question}}、{{context.date}}
var templateVarPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z0-9_]+)*)\s*\}\}`)

// RenderTemplate 渲染模板文本。
//
// 占位符格式为 {{input.key}} 或 {{context.key}}。
// 未解析的必需变量报错，而非静默替换为空串。
func RenderTemplate(tmpl string, tc *TemplateContext) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	var renderErr error
	rendered := templateVarPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if renderErr != nil {
			return match
		}

		path := templateVarPattern.FindStringSubmatch(match)[1]
		value, ok := tc.Lookup(path)
		if !ok {
			renderErr = errors.WrapError(errors.ErrUnresolvedVariable,
				fmt.Sprintf("template variable %q", path))
			return match
		}
		return fmt.Sprintf("%v", value)
	})

	if renderErr != nil {
		return "", renderErr
	}
	return rendered, nil
}
