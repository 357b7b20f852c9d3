// Package mcp implements the Model Context Protocol (MCP) server for ancheck.
package mcp

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
)

// Custom MCP error codes for ancheck.
const (
	// ErrCodeIndexingInProgress indicates another index pass is running.
	ErrCodeIndexingInProgress = -32001

	// ErrCodeStorage indicates the index database failed.
	ErrCodeStorage = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeFileNotFound indicates a file no longer exists on disk.
	ErrCodeFileNotFound = -32004

	// ErrCodeLaunchFailed indicates the OS refused to open a file.
	ErrCodeLaunchFailed = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
// Coded errors map by category; context errors map to ErrCodeTimeout.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var appErr *apperrors.AncheckError
	if errors.As(err, &appErr) {
		return mapAncheckError(appErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapAncheckError(ae *apperrors.AncheckError) *MCPError {
	message := ae.Message
	if ae.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ae.Message, ae.Suggestion)
	}

	code := ErrCodeInternalError
	switch ae.Category {
	case apperrors.CategoryIO:
		if ae.Code == apperrors.ErrCodeFileNotFound {
			code = ErrCodeFileNotFound
		} else if ae.Code == apperrors.ErrCodeFilePermission {
			code = ErrCodeLaunchFailed
		}
	case apperrors.CategoryStorage:
		code = ErrCodeStorage
	case apperrors.CategoryValidation:
		code = ErrCodeInvalidParams
	case apperrors.CategoryIndexing:
		if ae.Code == apperrors.ErrCodeIndexingInProgress {
			code = ErrCodeIndexingInProgress
		}
	case apperrors.CategoryLaunch:
		code = ErrCodeLaunchFailed
	}
	return &MCPError{Code: code, Message: message}
}
