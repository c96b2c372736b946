// Package tools defines tool contracts and the research tool implementations.
//
// Includes:
//   - ToolDefinition: name, description, parameter schema, handler.
//   - GenerateSchema[T](): derive the parameter schema from Go structs.
//   - Registry: name-keyed lookup, duplicate-checked, in registration order.
//   - Research tools: wikipedia_search, duckduckgo_search, web_scraping, save_to_text.
//
// Tool handlers report failures as errors; turning them into text the agent
// can read is the caller's job.
package tools
