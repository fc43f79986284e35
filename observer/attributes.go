package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for codeloop spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrCodeLanguage     = attribute.Key("code.language")
	AttrCodeStatus       = attribute.Key("code.status")
	AttrCodeErrorKind    = attribute.Key("code.error_kind")
	AttrCodeOutputLength = attribute.Key("code.output_length")

	AttrLoopStatus   = attribute.Key("loop.status")
	AttrLoopLanguage = attribute.Key("loop.language")
)
