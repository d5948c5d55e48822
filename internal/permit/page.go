// Package permit drives the visitor permit wizard and manages what it
// produces: the expiration timestamp, the screenshot and the renewal task.
package permit

import "context"

// Element IDs on the portal's visitor pages.
const (
	PropertyDropdownID   = "MainContent_ddl_Property"
	ApartmentFieldID     = "MainContent_txt_Apartment"
	PropertyNextButtonID = "MainContent_btn_PropertyNext"
	PlateFieldID         = "MainContent_txt_Plate"
	MakeFieldID          = "MainContent_txt_Make"
	ModelFieldID         = "MainContent_txt_Model"
	ColorFieldID         = "MainContent_txt_Color"
	VehicleNextButtonID  = "MainContent_btn_Vehicle_Next"
	AuthNextButtonID     = "MainContent_btn_Auth_Next"
	ReviewPlateFieldID   = "MainContent_txt_Review_PlateNumber"
	ConfirmCheckboxID    = "MainContent_cb_Confirm"
	SubmitButtonID       = "MainContent_btn_Submit"
	ExpirationLabelID    = "MainContent_lbl_Results_Expires"
	QRCodeImageID        = "MainContent_img_QRC"
)

// Page is the live portal tab.
type Page interface {
	// WaitVisible blocks until the element with the given id is visible or ctx is done.
	WaitVisible(ctx context.Context, id string) (Element, error)
	// FullScreenshot captures the whole page as PNG.
	FullScreenshot(ctx context.Context) ([]byte, error)
}

// Element is a handle to a visible element returned by Page.WaitVisible.
type Element interface {
	SendKeys(ctx context.Context, text string) error
	Click(ctx context.Context) error
	// SelectByText picks the option whose visible text equals text exactly.
	SelectByText(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
}
