// Package metadata extracts document-level metadata that the markdown
// conversion does not carry: presentation shape statistics, workbook
// properties and core properties.
package metadata

// Metadata keys shared by the extractors and the loaders.
const (
	Source              = "source"
	FileName            = "file_name"
	FileSize            = "file_size"
	ConversionSuccess   = "conversion_success"
	ContentType         = "content_type"
	PageNumber          = "page_number"
	SheetName           = "sheet_name"
	Author              = "author"
	Title               = "title"
	Subject             = "subject"
	Keywords            = "keywords"
	Description         = "description"
	Created             = "created"
	Modified            = "modified"
	LastModifiedBy      = "last_modified_by"
	Category            = "category"
	Revision            = "revision"
	SlideCount          = "slide_count"
	ImageCount          = "image_count"
	TextBoxCount        = "text_box_count"
	ChartCount          = "chart_count"
	TableCount          = "table_count"
	SheetCount          = "sheet_count"
	PageCount           = "page_count"
	ExtractionError     = "metadata_extraction_error"
	CaptionedImageCount = "captioned_image_count"
	CaptionFailureCount = "caption_failure_count"
	CaptionError        = "caption_error"
	Error               = "error"
)
