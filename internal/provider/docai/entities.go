package docai

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/documentai/v1"

	"quoteflow/internal/normalize"
)

// quoteEntity is one classified node of the processor's entity tree.
type quoteEntity interface {
	quoteEntity()
}

type headerEntity struct {
	field string
	text  string
	date  string
	money *moneyValue
}

type lineItemEntity struct {
	fields map[string]string
	price  *moneyValue
	breaks []qtyBreakEntity
}

type qtyBreakEntity struct {
	minQty    *float64
	unitPrice *float64
}

type unknownEntity struct {
	typeName string
}

func (headerEntity) quoteEntity()   {}
func (lineItemEntity) quoteEntity() {}
func (qtyBreakEntity) quoteEntity() {}
func (unknownEntity) quoteEntity()  {}

type moneyValue struct {
	amount   float64
	currency string
}

var headerAliases = map[string]string{
	"supplier_name":  "supplier_name",
	"supplier":       "supplier_name",
	"vendor_name":    "supplier_name",
	"quote_number":   "quote_number",
	"quote_id":       "quote_number",
	"quote_date":     "quote_date",
	"currency":       "currency",
	"valid_until":    "valid_until",
	"expiration":     "valid_until",
	"payment_terms":  "payment_terms",
	"notes":          "notes",
	"remarks":        "notes",
	"line_item":      "",
	"qty_break":      "",
	"quantity_break": "",
}

var itemAliases = map[string]string{
	"supplier_part_number": "supplier_part_number",
	"part_number":          "supplier_part_number",
	"product_code":         "supplier_part_number",
	"description":          "description",
	"item_description":     "description",
	"uom":                  "uom",
	"unit":                 "uom",
	"unit_price":           "unit_price",
	"price":                "unit_price",
	"lead_time_days":       "lead_time_days",
	"lead_time":            "lead_time_days",
	"moq":                  "moq",
	"minimum_order_qty":    "moq",
}

// typeName strips a "parent/" prefix so "line_item/unit_price" compares as "unit_price".
func typeName(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) string {
	t := strings.ToLower(strings.TrimSpace(e.Type))
	if i := strings.LastIndex(t, "/"); i >= 0 {
		t = t[i+1:]
	}
	return t
}

// classify parses one top-level entity into its tagged variant.
func classify(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) quoteEntity {
	t := typeName(e)
	switch t {
	case "line_item", "lineitem", "item":
		return parseLineItem(e)
	case "qty_break", "quantity_break":
		return parseQtyBreak(e)
	}
	if field, ok := headerAliases[t]; ok && field != "" {
		return headerEntity{field: field, text: entityText(e), date: entityDate(e), money: entityMoney(e)}
	}
	return unknownEntity{typeName: t}
}

func parseLineItem(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) lineItemEntity {
	item := lineItemEntity{fields: map[string]string{}}
	for _, prop := range e.Properties {
		if prop == nil {
			continue
		}
		t := typeName(prop)
		if t == "qty_break" || t == "quantity_break" {
			item.breaks = append(item.breaks, parseQtyBreak(prop))
			continue
		}
		field, ok := itemAliases[t]
		if !ok {
			continue
		}
		if field == "unit_price" {
			if m := entityMoney(prop); m != nil {
				item.price = m
			} else if v, ok := normalize.ParseNumber(entityText(prop)); ok {
				item.price = &moneyValue{amount: v}
			}
			continue
		}
		if v := entityText(prop); v != "" {
			item.fields[field] = v
		}
	}
	return item
}

func parseQtyBreak(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) qtyBreakEntity {
	var qb qtyBreakEntity
	for _, prop := range e.Properties {
		if prop == nil {
			continue
		}
		switch typeName(prop) {
		case "min_qty", "quantity", "qty":
			if v, ok := normalize.ParseNumber(entityText(prop)); ok {
				qb.minQty = &v
			}
		case "unit_price", "price":
			if m := entityMoney(prop); m != nil {
				qb.unitPrice = &m.amount
			} else if v, ok := normalize.ParseNumber(entityText(prop)); ok {
				qb.unitPrice = &v
			}
		}
	}
	return qb
}

// entityText prefers the processor's normalized text over the raw mention.
func entityText(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) string {
	if nv := e.NormalizedValue; nv != nil && strings.TrimSpace(nv.Text) != "" {
		return strings.TrimSpace(nv.Text)
	}
	return strings.TrimSpace(e.MentionText)
}

func entityDate(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) string {
	nv := e.NormalizedValue
	// Partial dates (month or day unset) fall back to the entity text.
	if nv == nil || nv.DateValue == nil || nv.DateValue.Year == 0 || nv.DateValue.Month == 0 || nv.DateValue.Day == 0 {
		return ""
	}
	d := nv.DateValue
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func entityMoney(e *documentai.GoogleCloudDocumentaiV1DocumentEntity) *moneyValue {
	nv := e.NormalizedValue
	if nv == nil || nv.MoneyValue == nil {
		return nil
	}
	m := nv.MoneyValue
	amount := float64(m.Units) + float64(m.Nanos)/1e9
	return &moneyValue{amount: math.Round(amount*1e6) / 1e6, currency: m.CurrencyCode}
}
