package submission

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tallyform/tallyform/internal/ledger"
)

// ExpenseLine is one itemized transportation or miscellaneous expense.
type ExpenseLine struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string  `json:"description" validate:"required,max=200"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Category      string  `json:"category" validate:"required,max=50"`
	AttachmentRef string  `json:"attachment_ref,omitempty" validate:"omitempty,max=500"`
}

// Attachment is an uploaded document carried inline in the payload.
// Content arrives base64-encoded on the wire.
type Attachment struct {
	Name    string `json:"name" validate:"required,max=120"`
	Content []byte `json:"content" validate:"required"`
}

// SubmissionPayload is the monthly form submission. The field set is
// open: the ledger schema decides what actually gets written.
type SubmissionPayload struct {
	Identity            string        `json:"identity" validate:"required,email"`
	DisplayName         string        `json:"display_name" validate:"max=120"`
	Period              string        `json:"period" validate:"required"`
	WorkStart           string        `json:"work_start,omitempty" validate:"omitempty,datetime=15:04"`
	WorkEnd             string        `json:"work_end,omitempty" validate:"omitempty,datetime=15:04"`
	AttendanceFrequency string        `json:"attendance_frequency,omitempty" validate:"omitempty,oneof=daily weekly biweekly monthly none"`
	CommuterPass        bool          `json:"commuter_pass"`
	CommuterRoute       string        `json:"commuter_route,omitempty" validate:"required_if=CommuterPass true,omitempty,max=200"`
	CommuterFare        float64       `json:"commuter_fare,omitempty" validate:"omitempty,gte=0"`
	TransportExpenses   []ExpenseLine `json:"transport_expenses,omitempty" validate:"dive"`
	MiscExpenses        []ExpenseLine `json:"misc_expenses,omitempty" validate:"dive"`
	Remarks             string        `json:"remarks,omitempty" validate:"max=1000"`
	Attachments         []Attachment  `json:"attachments,omitempty" validate:"dive"`
}

// Fields flattens the payload into ledger cells keyed by header name.
// Itemized lines and attachment references are JSON-encoded into their
// single column. attachmentRefs are the blob references produced when
// the inline attachments were stored.
func (p SubmissionPayload) Fields(attachmentRefs []string) (map[string]string, error) {
	fields := map[string]string{
		ledger.HeaderWorkStart:           p.WorkStart,
		ledger.HeaderWorkEnd:             p.WorkEnd,
		ledger.HeaderAttendanceFrequency: p.AttendanceFrequency,
		ledger.HeaderCommuterPass:        strconv.FormatBool(p.CommuterPass),
		ledger.HeaderRemarks:             p.Remarks,
	}
	if p.CommuterPass {
		fields[ledger.HeaderCommuterRoute] = p.CommuterRoute
		fields[ledger.HeaderCommuterFare] = strconv.FormatFloat(p.CommuterFare, 'f', -1, 64)
	} else {
		fields[ledger.HeaderCommuterRoute] = ""
		fields[ledger.HeaderCommuterFare] = ""
	}
	for header, lines := range map[string][]ExpenseLine{
		ledger.HeaderTransportExpenses: p.TransportExpenses,
		ledger.HeaderMiscExpenses:      p.MiscExpenses,
	} {
		if len(lines) == 0 {
			fields[header] = ""
			continue
		}
		encoded, err := json.Marshal(lines)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", header, err)
		}
		fields[header] = string(encoded)
	}
	if len(attachmentRefs) == 0 {
		fields[ledger.HeaderAttachments] = ""
	} else {
		encoded, err := json.Marshal(attachmentRefs)
		if err != nil {
			return nil, fmt.Errorf("encode attachments: %w", err)
		}
		fields[ledger.HeaderAttachments] = string(encoded)
	}
	return fields, nil
}
