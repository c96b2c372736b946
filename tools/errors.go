package tools

import "errors"

var (
	ErrDuplicateTool      = errors.New("duplicate tool name")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrMalformedArguments = errors.New("malformed arguments")
	ErrToolExecution      = errors.New("tool execution failed")
)
