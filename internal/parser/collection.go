package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/restbench/restbench/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseCollectionFile reads a collection document from a YAML or JSON file.
// JSON files may contain comments and trailing commas.
func ParseCollectionFile(filePath string) (*types.Collection, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var collection types.Collection
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".json" {
		if err := json.Unmarshal(jsonc.ToJSON(data), &collection); err != nil {
			return nil, fmt.Errorf("failed to parse JSON collection: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &collection); err != nil {
			return nil, fmt.Errorf("failed to parse YAML collection: %w", err)
		}
	}

	if len(collection.Requests) == 0 {
		return nil, fmt.Errorf("no requests found in %s", filePath)
	}

	normalize(&collection)
	return &collection, nil
}

// ParseRequestFile reads a single request descriptor (or the first of a
// list) for ad hoc sends.
func ParseRequestFile(filePath string) (*types.RequestDescriptor, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".json" {
		data = jsonc.ToJSON(data)
		var req types.RequestDescriptor
		if err := json.Unmarshal(data, &req); err == nil && req.URL != "" {
			return &req, nil
		}
		var reqs []types.RequestDescriptor
		if err := json.Unmarshal(data, &reqs); err != nil || len(reqs) == 0 {
			return nil, fmt.Errorf("failed to parse JSON request file: %w", err)
		}
		return &reqs[0], nil
	}

	var req types.RequestDescriptor
	if err := yaml.Unmarshal(data, &req); err == nil && req.URL != "" {
		return &req, nil
	}
	var reqs []types.RequestDescriptor
	if err := yaml.Unmarshal(data, &reqs); err != nil || len(reqs) == 0 {
		return nil, fmt.Errorf("failed to parse YAML request file: %w", err)
	}
	return &reqs[0], nil
}

// normalize fills in defaults the runner relies on: every request carries
// an id and its collection's id.
func normalize(collection *types.Collection) {
	for i := range collection.Requests {
		req := &collection.Requests[i]
		if req.ID == "" {
			req.ID = fmt.Sprintf("%s-%d", collection.ID, i)
		}
		if req.CollectionID == "" {
			req.CollectionID = collection.ID
		}
		if req.Method == "" {
			req.Method = "GET"
		}
	}
}
