package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// 16:9 slide size in EMU
const (
	pptxSlideWidth  = 12192000
	pptxSlideHeight = 6858000
)

// PPTXWriter builds a PowerPoint deck with one full-bleed picture per slide
type PPTXWriter struct{}

var _ ports.DeckWriter = (*PPTXWriter)(nil)

// NewPPTXWriter creates a PPTX deck writer
func NewPPTXWriter() *PPTXWriter {
	return &PPTXWriter{}
}

// Format returns the deck format
func (w *PPTXWriter) Format() entities.ExportFormat {
	return entities.ExportFormatPPTX
}

// MimeType returns the MIME type for PPTX decks
func (w *PPTXWriter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
}

// Write emits the package. Parts are written in the order Office expects:
// content types first, then relationships, then the presentation parts.
func (w *PPTXWriter) Write(ctx context.Context, out io.Writer, meta ports.DeckMeta, images [][]byte) error {
	zw := zip.NewWriter(out)

	add := func(name, body string) error {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		_, err = io.WriteString(f, body)
		return err
	}

	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML(len(images))},
		{"_rels/.rels", rootRelsXML},
		{"docProps/core.xml", coreXML(meta)},
		{"docProps/app.xml", appXML(len(images))},
		{"ppt/presentation.xml", presentationXML(len(images))},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(images))},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML},
	}
	for _, p := range parts {
		if err := add(p.name, p.body); err != nil {
			return err
		}
	}

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := i + 1
		if err := add(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(n)); err != nil {
			return err
		}
		if err := add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRelsXML(n)); err != nil {
			return err
		}
		f, err := zw.Create(fmt.Sprintf("ppt/media/image%d.png", n))
		if err != nil {
			return fmt.Errorf("creating image %d: %w", n, err)
		}
		if _, err := f.Write(img); err != nil {
			return fmt.Errorf("writing image %d: %w", n, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing PPTX archive: %w", err)
	}
	return nil
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsP     = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	relNS   = `http://schemas.openxmlformats.org/package/2006/relationships`
	relBase = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/`
)

func contentTypesXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

var rootRelsXML = xmlHeader + `<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + relBase + `officeDocument" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="` + relBase + `extended-properties" Target="docProps/app.xml"/>` +
	`</Relationships>`

func coreXML(meta ports.DeckMeta) string {
	return xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + escape(meta.Title) + `</dc:title>` +
		`<dc:creator>` + escape(meta.Author) + `</dc:creator>` +
		`</cp:coreProperties>`
}

func appXML(slides int) string {
	return xmlHeader + `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>slidekit</Application>` +
		fmt.Sprintf(`<Slides>%d</Slides>`, slides) +
		`</Properties>`
}

// presentation.xml.rels: rId1 is the master, rId2 the theme, slides follow
func presentationXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation ` + nsP + `>`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i+2)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`, pptxSlideWidth, pptxSlideHeight, pptxSlideHeight, pptxSlideWidth)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func presentationRelsXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + relNS + `">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + relBase + `slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	b.WriteString(`<Relationship Id="rId2" Type="` + relBase + `theme" Target="theme/theme1.xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="`+relBase+`slide" Target="slides/slide%d.xml"/>`, i+2, i)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const emptyTree = `<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>`

var slideMasterXML = xmlHeader + `<p:sldMaster ` + nsP + `>` + emptyTree +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

var slideMasterRelsXML = xmlHeader + `<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + relBase + `slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relBase + `theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

var slideLayoutXML = xmlHeader + `<p:sldLayout ` + nsP + ` type="blank">` + emptyTree +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

var slideLayoutRelsXML = xmlHeader + `<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + relBase + `slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

func slideXML(n int) string {
	return xmlHeader + `<p:sld ` + nsP + `><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		`<p:pic><p:nvPicPr>` +
		fmt.Sprintf(`<p:cNvPr id="2" name="Slide %d"/>`, n) +
		`<p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>` +
		`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>` +
		fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`, pptxSlideWidth, pptxSlideHeight) +
		`</p:pic></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func slideRelsXML(n int) string {
	return xmlHeader + `<Relationships xmlns="` + relNS + `">` +
		`<Relationship Id="rId1" Type="` + relBase + `slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
		fmt.Sprintf(`<Relationship Id="rId2" Type="`+relBase+`image" Target="../media/image%d.png"/>`, n) +
		`</Relationships>`
}

var themeXML = xmlHeader + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="slidekit">` +
	`<a:themeElements>` +
	`<a:clrScheme name="slidekit">` +
	`<a:dk1><a:srgbClr val="000000"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="1F2937"/></a:dk2><a:lt2><a:srgbClr val="F3F4F6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="2563EB"/></a:accent1><a:accent2><a:srgbClr val="DC2626"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="16A34A"/></a:accent3><a:accent4><a:srgbClr val="CA8A04"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="9333EA"/></a:accent5><a:accent6><a:srgbClr val="0891B2"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="2563EB"/></a:hlink><a:folHlink><a:srgbClr val="7C3AED"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="slidekit"><a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme>` +
	`<a:fmtScheme name="slidekit">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme></a:themeElements></a:theme>`
