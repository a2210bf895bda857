package provider

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"outfitter/model"
)

// Some models emit tool calls as literal text in the reply instead of using
// the provider's tool-call API. The patterns below recognize the formats seen
// in the wild: JSON arrays, bare JSON objects (with several spellings of the
// arguments key), XML tool_call/function_call envelopes, and the qwen3-coder
// function/parameter style.
var (
	leakedJSONArrayRegex  = regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}\s*\]`)
	leakedJSONObjectRegex = regexp.MustCompile(`\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}`)
	leakedXMLRegex        = regexp.MustCompile(`<(?:tool_call|function_call)>\s*<name>([^<]+)</name>\s*<arguments>([^<]*)</arguments>\s*</(?:tool_call|function_call)>`)
	leakedQwenXMLRegex    = regexp.MustCompile(`(?s)<function=([^>]+)>(.*?)</function>(?:</tool_call>)?`)
	leakedQwenParamRegex  = regexp.MustCompile(`(?s)<parameter=([^>]+)>(.*?)</parameter>`)
)

// leakedCall is one tool call as it appears in leaked JSON. Models disagree
// on the arguments key, so every observed spelling gets a field.
type leakedCall struct {
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments"`
	Param      map[string]any `json:"param"`
	Parameters map[string]any `json:"parameters"`
	Input      map[string]any `json:"input"`
}

func (c leakedCall) invocation() (model.ToolInvocation, bool) {
	if c.Name == "" {
		return model.ToolInvocation{}, false
	}

	args := c.Arguments
	if args == nil {
		args = c.Param
	}
	if args == nil {
		args = c.Parameters
	}
	if args == nil {
		args = c.Input
	}
	if args == nil {
		args = map[string]any{}
	}

	return model.ToolInvocation{
		ID:        uuid.New().String(),
		Name:      c.Name,
		Arguments: args,
	}, true
}

// ParseLeakedJSONToolCalls extracts tool calls a model leaked as JSON text.
// Array form is tried first; bare objects are only considered in the content
// that remains after array matches are removed, so calls inside an array are
// not counted twice.
func ParseLeakedJSONToolCalls(content string) []model.ToolInvocation {
	var invocations []model.ToolInvocation

	for _, match := range leakedJSONArrayRegex.FindAllString(content, -1) {
		var calls []leakedCall
		if err := json.Unmarshal([]byte(match), &calls); err != nil {
			continue
		}
		for _, call := range calls {
			if inv, ok := call.invocation(); ok {
				invocations = append(invocations, inv)
			}
		}
	}

	remaining := leakedJSONArrayRegex.ReplaceAllString(content, "")
	for _, match := range leakedJSONObjectRegex.FindAllString(remaining, -1) {
		var call leakedCall
		if err := json.Unmarshal([]byte(match), &call); err != nil {
			continue
		}
		if inv, ok := call.invocation(); ok {
			invocations = append(invocations, inv)
		}
	}

	return invocations
}

// ParseLeakedXMLToolCalls extracts tool calls a model leaked as XML text,
// covering both the tool_call/function_call envelope and the qwen3-coder
// function/parameter style.
func ParseLeakedXMLToolCalls(content string) []model.ToolInvocation {
	var invocations []model.ToolInvocation

	for _, match := range leakedXMLRegex.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if name == "" {
			continue
		}
		invocations = append(invocations, model.ToolInvocation{
			ID:        uuid.New().String(),
			Name:      name,
			Arguments: ParseToolArguments(match[2]),
		})
	}

	for _, match := range leakedQwenXMLRegex.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if name == "" {
			continue
		}
		args := map[string]any{}
		for _, param := range leakedQwenParamRegex.FindAllStringSubmatch(match[2], -1) {
			args[strings.TrimSpace(param[1])] = strings.TrimSpace(param[2])
		}
		invocations = append(invocations, model.ToolInvocation{
			ID:        uuid.New().String(),
			Name:      name,
			Arguments: args,
		})
	}

	return invocations
}

// CleanLeakedToolCalls removes leaked tool call text from content.
// Replies that triggered the leak fallback are stored and displayed with the
// leaked markup stripped, so it never pollutes later LLM context.
func CleanLeakedToolCalls(content string) string {
	content = leakedJSONArrayRegex.ReplaceAllString(content, "")
	content = leakedJSONObjectRegex.ReplaceAllString(content, "")
	content = leakedXMLRegex.ReplaceAllString(content, "")
	content = leakedQwenXMLRegex.ReplaceAllString(content, "")

	return strings.TrimSpace(content)
}
