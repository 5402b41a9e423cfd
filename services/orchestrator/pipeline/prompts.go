// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

// buildIntentPrompt asks the model to either plan data-source
// operations or answer directly. History is already bounded by the
// session store's window.
func buildIntentPrompt(message string, history []datatypes.Message) string {
	var b strings.Builder
	b.WriteString("You are a recipe assistant with access to a recipe database.\n")
	b.WriteString("If the user's request needs recipe data, respond with ONLY a JSON object of the form\n")
	b.WriteString(`{"operations":[{"kind":"search","params":{"query":"..."}}]}` + "\n")
	b.WriteString("Available kinds:\n")
	b.WriteString(`  search: params {"query": free text, max 100 chars}` + "\n")
	b.WriteString(`  filter: params with exactly one of {"ingredient": "..."} or {"area": "..."}` + "\n")
	b.WriteString(`  lookup: params {"id": numeric recipe id}` + "\n")
	b.WriteString("Use at most 5 operations.\n")
	b.WriteString("If no recipe data is needed (greetings, thanks, questions about yourself), answer in plain language instead.\n\n")
	writeHistory(&b, history)
	b.WriteString("User request: ")
	b.WriteString(message)
	return b.String()
}

// buildRefinementPrompt asks the model to pick up to max summary
// records worth fetching in full.
func buildRefinementPrompt(message string, summaries []datatypes.Recipe, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The recipe search returned summary records without cooking instructions.\n")
	fmt.Fprintf(&b, "Pick the %d most relevant for the user's request and respond with ONLY a JSON object of the form\n", max)
	b.WriteString(`{"operations":[{"kind":"lookup","params":{"id":"..."}}]}` + "\n\n")
	b.WriteString("Summary records:\n")
	for _, r := range summaries {
		fmt.Fprintf(&b, "  id=%s name=%s\n", r.ID, r.Name)
	}
	b.WriteString("\nUser request: ")
	b.WriteString(message)
	return b.String()
}

// buildSynthesisPrompt asks for the final conversational answer over
// the retrieved records.
func buildSynthesisPrompt(message string, found []datatypes.Recipe, history []datatypes.Message) string {
	var b strings.Builder
	b.WriteString("You are a friendly recipe assistant. Answer the user's request using the recipe data below.\n")
	b.WriteString("Mention recipe names naturally; summarize instructions rather than quoting them in full.\n")
	if len(found) == 0 {
		b.WriteString("No recipes matched; say so and suggest how the user could rephrase.\n")
	}
	b.WriteString("\n")
	writeHistory(&b, history)
	if len(found) > 0 {
		b.WriteString("Recipe data:\n")
		for _, r := range found {
			fmt.Fprintf(&b, "  name=%s", r.Name)
			if r.Category != "" {
				fmt.Fprintf(&b, " category=%s", r.Category)
			}
			if r.Area != "" {
				fmt.Fprintf(&b, " area=%s", r.Area)
			}
			b.WriteString("\n")
			if r.Instructions != "" {
				fmt.Fprintf(&b, "  instructions: %s\n", truncateText(r.Instructions, 600))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("User request: ")
	b.WriteString(message)
	return b.String()
}

func writeHistory(b *strings.Builder, history []datatypes.Message) {
	if len(history) == 0 {
		return
	}
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(b, "  %s: %s\n", m.Role, truncateText(m.Content, 300))
	}
	b.WriteString("\n")
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
