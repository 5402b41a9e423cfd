// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs before they
// reach generation prompts or downstream queries. Using these validators
// keeps markup, script payloads, and control characters out of the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxMessageLen bounds one chat message in bytes.
const MaxMessageLen = 4096

// scriptPattern matches embedded script markup and javascript: URLs,
// case-insensitively.
var scriptPattern = regexp.MustCompile(`(?i)(<\s*/?\s*script\b|javascript\s*:|on\w+\s*=)`)

// ValidateMessage screens a raw chat message before the pipeline sees it.
//
// Rejected:
//   - empty or whitespace-only messages
//   - messages over MaxMessageLen bytes
//   - embedded script markup, javascript: URLs, inline event handlers
//   - control characters other than tab and newline
//
// Returns an error describing the first violation found.
//
// Example:
//
//	if err := validation.ValidateMessage(req.Message); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(message) > MaxMessageLen {
		return fmt.Errorf("message exceeds %d bytes", MaxMessageLen)
	}
	if scriptPattern.MatchString(message) {
		return fmt.Errorf("message contains disallowed markup")
	}
	for _, r := range message {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("message contains control characters")
		}
	}
	return nil
}
