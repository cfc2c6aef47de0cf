package enum

type ContactRole string

const (
	RoleSeller     ContactRole = "seller"
	RoleBroker     ContactRole = "broker"
	RoleAttorney   ContactRole = "attorney"
	RoleAccountant ContactRole = "accountant"
	RoleBuyer      ContactRole = "buyer"
)

func (t ContactRole) String() string {
	return string(t)
}

// ContactSource tags which extraction path produced a contact candidate
type ContactSource string

const (
	ContactSourceSender    ContactSource = "sender"
	ContactSourceBody      ContactSource = "body"
	ContactSourceSignature ContactSource = "signature"
	ContactSourceBodyScan  ContactSource = "body_scan"
)

func (t ContactSource) String() string {
	return string(t)
}
