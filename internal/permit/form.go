package permit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/config"
)

// step is one guarded interaction with the wizard.
type step struct {
	id  string
	act func(ctx context.Context, el Element) error
}

func typeText(text string) func(context.Context, Element) error {
	return func(ctx context.Context, el Element) error { return el.SendKeys(ctx, text) }
}

func click(ctx context.Context, el Element) error { return el.Click(ctx) }

func selectText(text string) func(context.Context, Element) error {
	return func(ctx context.Context, el Element) error { return el.SelectByText(ctx, text) }
}

// FormDriver fills out the three page visitor wizard. The final step submits
// a real permit request; validate the config before calling Fill.
type FormDriver struct {
	cfg     *config.Config
	timeout time.Duration
	logger  *zap.Logger
}

// NewFormDriver creates a FormDriver bound to the vehicle and property in cfg.
func NewFormDriver(cfg *config.Config, logger *zap.Logger) *FormDriver {
	return &FormDriver{
		cfg:     cfg,
		timeout: cfg.ElementTimeout(),
		logger:  logger.Named("form"),
	}
}

// steps lists the wizard in order. There is no branching; a page that does
// not match fails on its first missing element.
func (d *FormDriver) steps() []step {
	return []step{
		{PropertyDropdownID, selectText(d.cfg.PropertyLocation)},

		// Page 1: apartment.
		{ApartmentFieldID, typeText(d.cfg.ApartmentNumber)},
		{PropertyNextButtonID, click},

		// Page 2: vehicle, then authorization.
		{PlateFieldID, typeText(d.cfg.PlateNumber)},
		{MakeFieldID, typeText(d.cfg.VehicleMake)},
		{ModelFieldID, typeText(d.cfg.VehicleModel)},
		{ColorFieldID, typeText(d.cfg.VehicleColor)},
		{VehicleNextButtonID, click},
		{AuthNextButtonID, click},

		// Page 3: review and submit.
		{ReviewPlateFieldID, typeText(d.cfg.PlateNumber)},
		{ConfirmCheckboxID, click},
		{SubmitButtonID, click},
	}
}

// Fill runs every wizard step against page, stopping at the first failure.
func (d *FormDriver) Fill(ctx context.Context, page Page) error {
	for _, s := range d.steps() {
		el, err := WaitFor(ctx, page, d.timeout, s.id)
		if err != nil {
			return err
		}
		err = Act(ctx, d.timeout, s.id, func(ctx context.Context) error { return s.act(ctx, el) })
		if err != nil {
			return fmt.Errorf("interacting with %s: %w", s.id, err)
		}
		d.logger.Debug("Wizard step complete.", zap.String("element", s.id))
	}
	d.logger.Info("Permit request submitted.", zap.String("property", d.cfg.PropertyLocation), zap.String("plate", d.cfg.PlateNumber))
	return nil
}
