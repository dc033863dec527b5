// =============================================================================
// Invoice Batch Generator - XML Writer Module
// =============================================================================
//
// This module exports the valid invoices of a batch as one XML document, for
// downstream accounting systems that ingest XML rather than PDF.
//
// XML STRUCTURE:
//
//   <invoices count="2">                        <!-- Root element -->
//     <invoice n="1">                           <!-- Invoice with index -->
//       <InvoiceNumber>INV-001</InvoiceNumber>
//       <Customer>
//         <Name>Acme</Name>
//         <Email>a@acme.in</Email>
//       </Customer>
//       <IssueDate>2024-01-15</IssueDate>
//       ...
//       <TotalAmount>29.50</TotalAmount>
//       <lineItem n="1">                        <!-- Global line numbering -->
//         <Description>Widget</Description>
//         <Quantity>2</Quantity>
//         <UnitPrice>10.00</UnitPrice>
//         <LineTotal>20.00</LineTotal>
//       </lineItem>
//     </invoice>
//   </invoices>
//
// Amounts are written with exactly two decimal places; rates keep their full
// precision. Dates use ISO 8601 (YYYY-MM-DD).
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/words"
)

// Element names of the export.
const (
	RootElement     = "invoices"
	InvoiceElement  = "invoice"
	LineItemElement = "lineItem"

	isoDate = "2006-01-02"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "http://example.com/schema"}
	RootAttributes map[string]string

	// LineItemNumberingGlobal determines if line item numbering is global.
	// If true: line items are numbered 1, 2, 3, 4... across all invoices.
	// If false: line items restart at 1 for each invoice.
	// Default: true
	LineItemNumberingGlobal bool

	// IncludeAmountInWords adds an AmountInWords element to every invoice.
	// Default: true
	IncludeAmountInWords bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                  "  ",
		IncludeXMLDeclaration:   true,
		RootAttributes:          make(map[string]string),
		LineItemNumberingGlobal: true,
		IncludeAmountInWords:    true,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from the invoices with default options.
func Generate(invoices []invoice.Invoice) ([]byte, error) {
	return GenerateWithOptions(invoices, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML document with custom options.
//
// GENERATION PROCESS:
//   1. Create the root element with the invoice count
//   2. For each invoice:
//      a. Create the invoice element with index attribute
//      b. Add header fields, customer and derived amounts
//      c. Add one line item element per item
//   3. Write the elements with indentation
func GenerateWithOptions(invoices []invoice.Invoice, options GenerateOptions) ([]byte, error) {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := buildDocument(invoices, options)
	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// WriteFile generates the export and writes it to path, creating the parent
// directory.
func WriteFile(path string, invoices []invoice.Invoice) error {
	doc, err := Generate(invoices)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("failed to write XML export: %w", err)
	}
	return nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the root element.
func buildDocument(invoices []invoice.Invoice, options GenerateOptions) XMLElement {
	root := XMLElement{
		XMLName: xml.Name{Local: RootElement},
		Attributes: []xml.Attr{
			{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(invoices))},
		},
	}
	for key, value := range options.RootAttributes {
		root.Attributes = append(root.Attributes, xml.Attr{Name: xml.Name{Local: key}, Value: value})
	}

	globalLineItemIndex := 1
	for i, inv := range invoices {
		root.Children = append(root.Children, buildInvoiceElement(inv, i+1, options, &globalLineItemIndex))
	}
	return root
}

// buildInvoiceElement constructs an invoice XML element.
//
// PARAMETERS:
//   - inv: The invoice.
//   - index: The 1-based position of the invoice in the batch.
//   - options: The generation options.
//   - globalLineItemIndex: Pointer to the global line item counter.
func buildInvoiceElement(inv invoice.Invoice, index int, options GenerateOptions, globalLineItemIndex *int) XMLElement {
	element := XMLElement{
		XMLName:    xml.Name{Local: InvoiceElement},
		Attributes: []xml.Attr{{Name: xml.Name{Local: "n"}, Value: strconv.Itoa(index)}},
	}

	customer := inv.Customer()
	customerElement := XMLElement{
		XMLName: xml.Name{Local: "Customer"},
		Children: []XMLElement{
			createSimpleElement("Name", customer.Name()),
			createSimpleElement("Email", customer.Email()),
			createSimpleElement("Address", customer.Address()),
		},
	}
	if customer.Phone() != "" {
		customerElement.Children = append(customerElement.Children, createSimpleElement("Phone", customer.Phone()))
	}

	element.Children = append(element.Children,
		createSimpleElement("InvoiceNumber", inv.Number()),
		customerElement,
		createSimpleElement("IssueDate", inv.IssueDate().Format(isoDate)),
		createSimpleElement("DueDate", inv.DueDate().Format(isoDate)),
		createSimpleElement("TaxRate", inv.TaxRate().String()),
		createSimpleElement("DiscountRate", inv.DiscountRate().String()),
		createSimpleElement("Subtotal", invoice.FormatAmount(inv.Subtotal())),
		createSimpleElement("DiscountAmount", invoice.FormatAmount(inv.DiscountAmount())),
		createSimpleElement("TaxAmount", invoice.FormatAmount(inv.TaxAmount())),
		createSimpleElement("TotalAmount", invoice.FormatAmount(inv.TotalAmount())),
	)
	if options.IncludeAmountInWords {
		element.Children = append(element.Children, createSimpleElement("AmountInWords", words.AmountToWords(inv.TotalAmount())))
	}
	if inv.Notes() != "" {
		element.Children = append(element.Children, createSimpleElement("Notes", inv.Notes()))
	}

	for i, item := range inv.Items() {
		n := i + 1
		if options.LineItemNumberingGlobal {
			n = *globalLineItemIndex
			(*globalLineItemIndex)++
		}
		element.Children = append(element.Children, XMLElement{
			XMLName:    xml.Name{Local: LineItemElement},
			Attributes: []xml.Attr{{Name: xml.Name{Local: "n"}, Value: strconv.Itoa(n)}},
			Children: []XMLElement{
				createSimpleElement("Description", item.Description()),
				createSimpleElement("Quantity", strconv.FormatInt(item.Quantity(), 10)),
				createSimpleElement("UnitPrice", invoice.FormatAmount(item.UnitPrice())),
				createSimpleElement("LineTotal", invoice.FormatAmount(item.LineTotal())),
			},
		})
	}

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	buffer.WriteString(strings.Repeat(indent, level))

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)
	for _, attr := range element.Attributes {
		fmt.Fprintf(buffer, " %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}
	return buffer.String()
}

// =============================================================================
// XSD GENERATION
// =============================================================================

type xsdField struct {
	name     string
	xsdType  string
	required bool
}

var invoiceFields = []xsdField{
	{"InvoiceNumber", "xs:string", true},
	{"IssueDate", "xs:date", true},
	{"DueDate", "xs:date", true},
	{"TaxRate", "xs:decimal", true},
	{"DiscountRate", "xs:decimal", true},
	{"Subtotal", "xs:decimal", true},
	{"DiscountAmount", "xs:decimal", true},
	{"TaxAmount", "xs:decimal", true},
	{"TotalAmount", "xs:decimal", true},
	{"AmountInWords", "xs:string", false},
	{"Notes", "xs:string", false},
}

var customerFields = []xsdField{
	{"Name", "xs:string", true},
	{"Email", "xs:string", true},
	{"Address", "xs:string", true},
	{"Phone", "xs:string", false},
}

var lineItemFields = []xsdField{
	{"Description", "xs:string", true},
	{"Quantity", "xs:positiveInteger", true},
	{"UnitPrice", "xs:decimal", true},
	{"LineTotal", "xs:decimal", true},
}

// GenerateXSD returns the XML Schema describing the export.
func GenerateXSD() []byte {
	var buffer bytes.Buffer

	buffer.WriteString(xml.Header)
	buffer.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="count" type="xs:nonNegativeInteger" use="required"/>
    </xs:complexType>
  </xs:element>

`, RootElement, InvoiceElement)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, InvoiceElement)
	writeXSDElement(&buffer, invoiceFields[0], 4)
	buffer.WriteString(`        <xs:element name="Customer">
          <xs:complexType>
            <xs:sequence>
`)
	for _, f := range customerFields {
		writeXSDElement(&buffer, f, 7)
	}
	buffer.WriteString(`            </xs:sequence>
          </xs:complexType>
        </xs:element>
`)
	for _, f := range invoiceFields[1:] {
		writeXSDElement(&buffer, f, 4)
	}
	fmt.Fprintf(&buffer, `        <xs:element ref="%s" minOccurs="1" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

`, LineItemElement)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, LineItemElement)
	for _, f := range lineItemFields {
		writeXSDElement(&buffer, f, 4)
	}
	buffer.WriteString(`      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	return buffer.Bytes()
}

// writeXSDElement writes an XSD element definition.
func writeXSDElement(buffer *bytes.Buffer, f xsdField, indentLevel int) {
	minOccurs := "0"
	if f.required {
		minOccurs = "1"
	}
	fmt.Fprintf(buffer, "%s<xs:element name=\"%s\" type=\"%s\" minOccurs=\"%s\"/>\n",
		strings.Repeat("  ", indentLevel), f.name, f.xsdType, minOccurs)
}
