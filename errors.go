package mdloader

import "errors"

var (
	// ErrConversionFailed wraps every fatal load error.
	ErrConversionFailed = errors.New("mdloader: conversion failed")

	// ErrFileNotFound is returned, together with ErrConversionFailed, when
	// the path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFormat is returned, together with ErrConversionFailed,
	// when no converter handles the file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMetadataExtraction marks a failed metadata extraction. It is never
	// returned from Load; the message is recorded in the document metadata.
	ErrMetadataExtraction = errors.New("mdloader: metadata extraction failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("mdloader: invalid configuration")
)
