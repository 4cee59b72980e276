package core

import (
	"encoding/base64"
	"fmt"
)

// ExportNotes packages meeting notes as a downloadable artifact. The
// payload is the plain-text document, base64 encoded; a production build
// would swap in a real PDF renderer here.
func ExportNotes(meetingID, notes string) *NotesExport {
	content := fmt.Sprintf("Meeting Notes - %s\n\n%s", meetingID, notes)

	return &NotesExport{
		PDFBase64: base64.StdEncoding.EncodeToString([]byte(content)),
		Filename:  fmt.Sprintf("meeting_notes_%s.pdf", meetingID),
	}
}
