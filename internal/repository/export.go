package repository

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

const (
	// CSVExportName and JSONExportName are the file names written on autosave
	CSVExportName  = "disaster-id-scan_export.csv"
	JSONExportName = "disaster-id-scan_autosave.json"

	exportDateLayout      = "02.01.2006"
	exportTimestampLayout = "02.01.2006 15:04:05"
)

// ExportHeader is the column row expected by the shelter administration.
var ExportHeader = []string{
	"Name", "Vorname", "geb", "Alter(ca.)", "Nationalitaet", "Staat",
	"Unterkunft", "Katastrophenort", "Katastrophentag", "Registrierungszeit",
}

// WriteCSV writes registrants in export format. Ages are approximated as the
// difference of calendar years to now, and registration times are shown in
// now's location.
func WriteCSV(w io.Writer, registrants []*Registrant, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}

	for _, r := range registrants {
		age := ""
		if r.DateOfBirth != nil {
			age = strconv.Itoa(now.Year() - r.DateOfBirth.Year())
		}
		registered := ""
		if !r.RegisteredAt.IsZero() {
			registered = r.RegisteredAt.In(now.Location()).Format(exportTimestampLayout)
		}

		record := []string{
			r.LastName,
			r.FirstName,
			exportDate(r.DateOfBirth),
			age,
			r.Nationality,
			r.Residence,
			r.PlaceOfShelter,
			r.PlaceOfCatastrophe,
			exportDate(r.DateOfCatastrophe),
			registered,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes a full snapshot of registrants that can be re-imported.
func WriteJSON(w io.Writer, registrants []*Registrant) error {
	if registrants == nil {
		registrants = []*Registrant{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(registrants)
}

// ReadJSON decodes a snapshot written by WriteJSON.
func ReadJSON(r io.Reader) ([]*Registrant, error) {
	var registrants []*Registrant
	if err := json.NewDecoder(r).Decode(&registrants); err != nil {
		return nil, err
	}
	return registrants, nil
}

func exportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateLayout)
}
