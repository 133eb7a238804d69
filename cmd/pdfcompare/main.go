// Command pdfcompare compares two PDF files by text or by rendered pixels.
//
//	pdfcompare [flags] file1.pdf file2.pdf [image-dir]
//	pdfcompare -count file.pdf
//	pdfcompare -text [-pages 2-5] file.pdf
//	pdfcompare -save-images file.pdf [image-dir]
//	pdfcompare -extract-images file.pdf [image-dir]
//	pdfcompare -job jobs.json [-db URL] [-xlsx report.xlsx]
//	pdfcompare -db URL -xlsx report.xlsx
//
// Exit status is 0 when the documents match, 1 when they differ and 2 on
// any error.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
