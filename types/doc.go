// Copyright (c) VitalSight Authors.
// Licensed under the MIT License.

/*
Package types holds the shared value types of assistcore.

# Overview

types is the lowest package in the module and imports nothing internal.
The cache (llm/cache), the context selector (agent/context) and the CLI
all exchange data through the types defined here, which keeps the
dependency graph acyclic.

# Core types

  - Message / Role     — one conversation turn handed in by the chat store
  - ToolCall           — tool name plus an arbitrary nested parameter bag
  - DataFingerprint    — cheap summary of the data a tool call depends on
  - ToolResult         — tagged variant: tool name + serialized typed payload
  - ToolPayload        — strongly typed payloads, one per registered tool
  - Error / ErrorCode  — structured boundary errors
  - TokenCounter       — minimal token counting contract

# Context propagation

WithConversationID attaches the chat thread ID to a context.Context so
boundary code (the caching executor, the selector) can log it. Trace IDs
come from the OpenTelemetry span in the context.
*/
package types
