// Package model defines the declarative building blocks of cortex: pathways
// (ordered prompt pipelines with chunking and budget settings), prompts,
// chat messages, backend model descriptors and the catalog that ties them
// together.
//
// Pathways and models are usually loaded from YAML:
//
//	defaultModelName: gpt
//	models:
//	  gpt:
//	    type: OPENAI-CHAT
//	    url: https://api.openai.com/v1/chat/completions
//	    maxTokenLength: 8192
//	pathways:
//	  bullets:
//	    prompt:
//	      - "Summarize: {{text}}"
//	      - "Turn into bullet points: {{previousResult}}"
//
// All definitions are immutable once loaded and may be shared across
// concurrent requests.
package model
