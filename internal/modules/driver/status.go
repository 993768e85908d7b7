// README: Approval status transitions for cars and tariff requests and the notifications they fire.
package driver

import "github.com/KamranYsupov/TaxiDriverBot/internal/notify"

type ApprovalStatus string

const (
	StatusWaiting     ApprovalStatus = "waiting"
	StatusApproved    ApprovalStatus = "approved"
	StatusDisapproved ApprovalStatus = "disapproved"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusDisapproved:
		return true
	}
	return false
}

type NotificationKind string

const (
	NotifyCarApproved       NotificationKind = "car_approved"
	NotifyCarDisapproved    NotificationKind = "car_disapproved"
	NotifyTariffApproved    NotificationKind = "tariff_approved"
	NotifyTariffDisapproved NotificationKind = "tariff_disapproved"
)

// Notification is the message owed to the driver after a status transition.
type Notification struct {
	Kind NotificationKind
	Text string
}

// ApplyStatusChange reports whether moving from current to next is a real
// decision: the status differs and is not waiting. Saving the same status
// again, or moving back to waiting, never notifies.
func ApplyStatusChange(current, next ApprovalStatus) bool {
	return next != current && next != StatusWaiting
}

// ApplyCarStatus returns the car with the new status and the notification
// to send, or nil when the change is a no-op.
func ApplyCarStatus(c Car, next ApprovalStatus) (Car, *Notification) {
	fire := ApplyStatusChange(c.Status, next)
	c.Status = next
	if !fire {
		return c, nil
	}
	if next == StatusApproved {
		return c, &Notification{Kind: NotifyCarApproved, Text: notify.TextCarApproved}
	}
	return c, &Notification{Kind: NotifyCarDisapproved, Text: notify.TextCarDisapproved}
}

// ApplyTariffRequestStatus decides a waiting request. A decided request only
// accepts its own status again, as a no-op, since an approval has already
// changed the driver's tariff.
func ApplyTariffRequestStatus(r TariffRequest, next ApprovalStatus) (TariffRequest, *Notification, error) {
	if r.Status != StatusWaiting && next != r.Status {
		return r, nil, ErrRequestDecided
	}
	fire := ApplyStatusChange(r.Status, next)
	r.Status = next
	if !fire {
		return r, nil, nil
	}
	if next == StatusApproved {
		return r, &Notification{Kind: NotifyTariffApproved, Text: notify.TextTariffApproved}, nil
	}
	return r, &Notification{Kind: NotifyTariffDisapproved, Text: notify.TextTariffRejected}, nil
}
