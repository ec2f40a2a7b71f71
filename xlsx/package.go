// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"github.com/dustin/go-humanize"
	"github.com/valyala/quicktemplate"
)

const (
	relTypeBase          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relTypeDocument      = relTypeBase + "officeDocument"
	relTypeWorksheet     = relTypeBase + "worksheet"
	relTypeStyles        = relTypeBase + "styles"
	relTypeSharedStrings = relTypeBase + "sharedStrings"

	contentTypeBase          = "application/vnd.openxmlformats-officedocument.spreadsheetml."
	contentTypeWorkbook      = contentTypeBase + "sheet.main+xml"
	contentTypeWorksheet     = contentTypeBase + "worksheet+xml"
	contentTypeStyles        = contentTypeBase + "styles+xml"
	contentTypeSharedStrings = contentTypeBase + "sharedStrings+xml"
	contentTypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
)

type part struct {
	name  string
	write func(*quicktemplate.Writer)
}

// assemble writes the parts after the worksheets and seals the container.
// The worksheets are already closed.
func (w *Writer) assemble() error {
	styles := newStyleTable(w.styles.export())
	parts := [...]part{
		{"xl/styles.xml", styles.write},
		{"xl/sharedStrings.xml", w.writeSharedStrings},
		{"xl/workbook.xml", w.writeWorkbook},
		{"xl/_rels/workbook.xml.rels", w.writeWorkbookRels},
		{"_rels/.rels", writeRootRels},
		{"[Content_Types].xml", w.writeContentTypes},
	}
	for _, p := range parts {
		if err := w.writePart(p); err != nil {
			return w.ioError(p.name, err)
		}
	}
	if err := w.zw.Close(); err != nil {
		return w.ioError("container directory", err)
	}
	if err := w.bw.Flush(); err != nil {
		return w.ioError("flush", err)
	}
	w.logger.Info("xlsx written",
		"worksheets", len(w.sheets), "styles", len(styles.xfs),
		"fonts", styles.fonts.len(), "fills", styles.fills.len(), "borders", styles.borders.len(),
		"strings", w.strings.len(), "stringRefs", w.strings.refs,
		"size", humanize.Bytes(uint64(w.sink.n)))
	return nil
}

func (w *Writer) writePart(p part) error {
	entry, err := w.createEntry(p.name)
	if err != nil {
		return err
	}
	sw := &stickyWriter{w: entry}
	qw := quicktemplate.AcquireWriter(sw)
	p.write(qw)
	quicktemplate.ReleaseWriter(qw)
	return sw.err
}

func (w *Writer) writeSharedStrings(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<sst xmlns="` + nsMain + `"`)
	attrInt(qw, "count", w.strings.refs)
	attrInt(qw, "uniqueCount", w.strings.len())
	n.S(`>`)
	for _, s := range w.strings.export() {
		n.S(`<si>`)
		writeT(qw, s)
		n.S(`</si>`)
	}
	n.S(`</sst>`)
}

func (w *Writer) writeWorkbook(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRelationships + `">`)
	var active int
	for i, ws := range w.sheets {
		if ws.selected {
			active = i
		}
	}
	n.S(`<bookViews><workbookView`)
	attrInt(qw, "activeTab", active)
	n.S(`/></bookViews><sheets>`)
	for _, ws := range w.sheets {
		n.S(`<sheet`)
		attr(qw, "name", ws.name)
		attrInt(qw, "sheetId", ws.index)
		n.S(` r:id="rId`)
		n.D(ws.index)
		n.S(`"`)
		if ws.opts.hidden {
			n.S(` state="hidden"`)
		}
		n.S(`/>`)
	}
	n.S(`</sheets>`)

	var hasNames bool
	for _, ws := range w.sheets {
		if ws.autoFilter == nil {
			continue
		}
		if !hasNames {
			n.S(`<definedNames>`)
			hasNames = true
		}
		n.S(`<definedName name="_xlnm._FilterDatabase"`)
		attrInt(qw, "localSheetId", ws.index-1)
		n.S(` hidden="1">`)
		qw.E().S(quoteSheetName(ws.name) + "!" + ws.autoFilter.ref(true))
		n.S(`</definedName>`)
	}
	if hasNames {
		n.S(`</definedNames>`)
	}
	n.S(`</workbook>`)
}

func writeRelationship(qw *quicktemplate.Writer, id int, typ, target string) {
	n := qw.N()
	n.S(`<Relationship Id="rId`)
	n.D(id)
	n.S(`"`)
	attr(qw, "Type", typ)
	attr(qw, "Target", target)
	n.S(`/>`)
}

func (w *Writer) writeWorkbookRels(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<Relationships xmlns="` + nsPackageRels + `">`)
	for _, ws := range w.sheets {
		writeRelationship(qw, ws.index, relTypeWorksheet, ws.path()[len("xl/"):])
	}
	writeRelationship(qw, len(w.sheets)+1, relTypeStyles, "styles.xml")
	writeRelationship(qw, len(w.sheets)+2, relTypeSharedStrings, "sharedStrings.xml")
	n.S(`</Relationships>`)
}

func writeRootRels(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<Relationships xmlns="` + nsPackageRels + `">`)
	writeRelationship(qw, 1, relTypeDocument, "xl/workbook.xml")
	n.S(`</Relationships>`)
}

func writeOverride(qw *quicktemplate.Writer, partName, contentType string) {
	qw.N().S(`<Override`)
	attr(qw, "PartName", partName)
	attr(qw, "ContentType", contentType)
	qw.N().S(`/>`)
}

func (w *Writer) writeContentTypes(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<Types xmlns="` + nsContentTypes + `">`)
	n.S(`<Default Extension="rels" ContentType="` + contentTypeRelationships + `"/>`)
	n.S(`<Default Extension="xml" ContentType="application/xml"/>`)
	writeOverride(qw, "/xl/workbook.xml", contentTypeWorkbook)
	for _, ws := range w.sheets {
		writeOverride(qw, "/"+ws.path(), contentTypeWorksheet)
	}
	writeOverride(qw, "/xl/styles.xml", contentTypeStyles)
	writeOverride(qw, "/xl/sharedStrings.xml", contentTypeSharedStrings)
	n.S(`</Types>`)
}
