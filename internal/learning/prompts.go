package learning

// draftSystemPrompt instructs the model to act as a triage reviewer and
// answer with a single JSON object describing a reusable insight.
const draftSystemPrompt = `You are an expert IT service management analyst reviewing triage mistakes.

You will be shown tickets where an automated triage assistant predicted the wrong %s. Study the mistakes and extract a reusable insight that would have prevented them.

Respond with a single JSON object and nothing else:
{
  "skill_name": "short kebab-case name for the insight",
  "description": "one sentence describing when this insight applies",
  "patterns": ["signal or phrase in tickets that indicates this situation", "..."],
  "rules": ["concrete instruction the assistant should follow", "..."]
}

Rules must be specific enough to change future predictions. Do not restate the mistakes; generalize from them.`

// draftFailureEntry is one mistake shown to the model.
const draftFailureEntry = `### Ticket %s
Title: %s
Description: %s
Predicted %s: %s
Correct %s: %s
`

// skillBodyTemplate renders an approved-reviewable proposal document.
// Sections mirror the built-in skill files so an approved proposal reads
// the same as hand-written guidance in the composed prompt.
const skillBodyTemplate = `---
name: %s
description: %s
---

# %s

%s

## Patterns to Watch For

%s

## Rules

%s

## Source Mistakes

%s

## How to Apply

When a ticket matches one of the patterns above, apply the rules before settling on a %s. These rules were derived from real triage mistakes and reviewed by a human before activation.
`
