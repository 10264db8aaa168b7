package domain

import "errors"

var (
	// ErrEmptyHTML signals that the request carried no HTML to render.
	ErrEmptyHTML = errors.New("html content is empty")
	// ErrBrowserLaunch signals that the headless browser could not be started.
	ErrBrowserLaunch = errors.New("browser launch failed")
	// ErrPageLoad signals that the HTML could not be loaded into the page.
	ErrPageLoad = errors.New("page load failed")
	// ErrPDFRender signals that printing the page to PDF failed.
	ErrPDFRender = errors.New("pdf render failed")
	// ErrInvalidPDF signals that the engine returned bytes without a PDF header.
	ErrInvalidPDF = errors.New("renderer returned invalid pdf")
)
