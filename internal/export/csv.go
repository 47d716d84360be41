// Package export renders the lead collection in CRM-importable formats.
//
// The CSV layout is a fixed 18-column contract consumed by a downstream CRM
// importer: every field is double-quoted (quotes doubled), missing or "n/a"
// values become the literal placeholder "empty", and the shipping address
// block mirrors the billing block. The writer is hand-rolled because
// encoding/csv quotes only when necessary and the contract quotes always.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/leadmagnet/leadmagnet-cli/internal/model"
)

// ErrNoLeads is returned when an export is requested on an empty collection.
// Callers must treat it as "produce no file", not as a failure.
var ErrNoLeads = eris.New("export: no leads to export")

// Placeholder substitutes missing, blank, or "n/a" values in export rows.
const Placeholder = "empty"

// Columns is the ordered CRM header row.
var Columns = []string{
	"firstName", "lastName", "email", "addressFullName", "addressStreet", "addressApartment",
	"addressCity", "addressState", "addressCountry", "addressZipCode",
	"shippingAddressFullName", "shippingAddressStreet", "shippingAddressApartment",
	"shippingAddressCity", "shippingAddressState", "shippingAddressCountry",
	"shippingAddressZipCode", "phoneNumber",
}

// CSV renders the collection as a CRM-ready CSV blob.
func CSV(leads []model.Lead) ([]byte, error) {
	if len(leads) == 0 {
		return nil, ErrNoLeads
	}

	var b strings.Builder
	b.WriteString(joinQuoted(Columns))
	for _, l := range leads {
		b.WriteByte('\n')
		b.WriteString(joinQuoted(Row(l)))
	}
	return []byte(b.String()), nil
}

// Row maps one lead onto the 18-column contract.
func Row(l model.Lead) []string {
	first, last := SplitName(l.Name)

	street := l.Street
	if street == "" {
		street = l.Address
	}

	name := sanitize(l.Name)
	street = sanitize(street)
	city := sanitize(l.City)
	state := sanitize(l.State)
	country := sanitize(l.Country)
	zip := sanitize(l.ZipCode)

	return []string{
		first,
		last,
		sanitize(l.Email),
		name,
		street,
		Placeholder, // addressApartment: no apartment data modeled
		city,
		state,
		country,
		zip,
		name,
		street,
		Placeholder, // shippingAddressApartment
		city,
		state,
		country,
		zip,
		sanitize(l.Phone),
	}
}

// SplitName splits a business name on whitespace into the contract's
// firstName/lastName pair. A single-token name yields lastName "empty".
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return Placeholder, Placeholder
	}
	first = sanitize(parts[0])
	if len(parts) > 1 {
		last = sanitize(strings.Join(parts[1:], " "))
	} else {
		last = Placeholder
	}
	return first, last
}

// Filename builds the export file name for the given instant.
func Filename(now time.Time) string {
	return fmt.Sprintf("LeadMagnet_CRM_Ready_%d.csv", now.UnixMilli())
}

// sanitize replaces blank or "n/a" values with the placeholder.
func sanitize(val string) string {
	if val == "n/a" || strings.TrimSpace(val) == "" {
		return Placeholder
	}
	return val
}

// joinQuoted wraps every field in double quotes, doubling interior quotes.
func joinQuoted(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
