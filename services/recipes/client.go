// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recipes is the HTTP client for the upstream recipe API
// (TheMealDB wire format). It owns the closed filter vocabularies and
// normalizes the upstream's "meals" envelope into typed results.
package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

var recipesTracer = otel.Tracer("pantrypilot.services.recipes")

const defaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

// ResultSet is the normalized outcome of one upstream call.
//
// A null or absent "meals" field upstream is a well-formed empty result:
// Recipes is empty and Unexpected is false. Any payload that is not a
// meals envelope sets Unexpected and keeps the raw bytes for diagnostics;
// callers treat it as empty rather than as a hard error.
type ResultSet struct {
	Recipes    []datatypes.Recipe
	Unexpected bool
	Raw        json.RawMessage
}

// Client performs one HTTP GET per operation against the recipe API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient reads RECIPE_API_URL_BASE (defaulting to the public
// TheMealDB v1 endpoint) and applies a small client-side rate limit out
// of politeness toward the free API.
func NewClient() *Client {
	baseURL := os.Getenv("RECIPE_API_URL_BASE")
	if baseURL == "" {
		baseURL = defaultBaseURL
		slog.Info("RECIPE_API_URL_BASE not set, using public endpoint", "base_url", baseURL)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SearchByText performs a free-text recipe search (search.php?s=).
func (c *Client) SearchByText(ctx context.Context, query string) (*ResultSet, error) {
	return c.get(ctx, "search.php", "s", query)
}

// FilterByIngredient returns summary records for one ingredient
// (filter.php?i=).
func (c *Client) FilterByIngredient(ctx context.Context, ingredient string) (*ResultSet, error) {
	return c.get(ctx, "filter.php", "i", ingredient)
}

// FilterByArea returns summary records for one cuisine area
// (filter.php?a=).
func (c *Client) FilterByArea(ctx context.Context, area string) (*ResultSet, error) {
	return c.get(ctx, "filter.php", "a", area)
}

// LookupByID fetches the full detail record for a recipe id
// (lookup.php?i=).
func (c *Client) LookupByID(ctx context.Context, id string) (*ResultSet, error) {
	return c.get(ctx, "lookup.php", "i", id)
}

// Execute dispatches a validated Operation to the matching endpoint.
// Filter operations carry exactly one of the ingredient/area params by
// the time they reach here.
func (c *Client) Execute(ctx context.Context, op datatypes.Operation) (*ResultSet, error) {
	switch op.Kind {
	case datatypes.OpSearch:
		return c.SearchByText(ctx, op.Param(datatypes.ParamQuery))
	case datatypes.OpFilter:
		if v := op.Param(datatypes.ParamIngredient); v != "" {
			return c.FilterByIngredient(ctx, v)
		}
		return c.FilterByArea(ctx, op.Param(datatypes.ParamArea))
	case datatypes.OpLookup:
		return c.LookupByID(ctx, op.Param(datatypes.ParamID))
	default:
		return nil, fmt.Errorf("unsupported operation kind %q", op.Kind)
	}
}

func (c *Client) get(ctx context.Context, endpoint, param, value string) (*ResultSet, error) {
	ctx, span := recipesTracer.Start(ctx, "recipes.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("recipes.endpoint", endpoint),
		attribute.String("recipes.param", param),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait failed")
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	query := url.Values{}
	query.Set(param, value)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build recipe API request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recipe API call failed")
		return nil, fmt.Errorf("recipe API call failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("recipe API returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-200 from recipe API")
		return nil, err
	}

	result := parseMealsEnvelope(body)
	span.SetAttributes(
		attribute.Int("recipes.count", len(result.Recipes)),
		attribute.Bool("recipes.unexpected_format", result.Unexpected),
	)
	if result.Unexpected {
		slog.Warn("Recipe API returned an unexpected payload shape",
			"endpoint", endpoint, "bytes", len(body))
	}
	return result, nil
}

// parseMealsEnvelope decodes the upstream {"meals": ...} envelope.
func parseMealsEnvelope(body []byte) *ResultSet {
	var envelope struct {
		Meals json.RawMessage `json:"meals"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ResultSet{Unexpected: true, Raw: append(json.RawMessage(nil), body...)}
	}
	trimmed := strings.TrimSpace(string(envelope.Meals))
	if trimmed == "" || trimmed == "null" {
		// Well-formed empty result.
		return &ResultSet{}
	}
	var meals []datatypes.Recipe
	if err := json.Unmarshal(envelope.Meals, &meals); err != nil {
		return &ResultSet{Unexpected: true, Raw: append(json.RawMessage(nil), body...)}
	}
	return &ResultSet{Recipes: meals}
}
