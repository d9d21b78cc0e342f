package autorespond

import (
	"context"

	"github.com/wolfman30/autorespond/internal/booking"
)

// MachineFlow runs SMS dialogues through a booking.Machine.
func MachineFlow(m *booking.Machine) BookingFlow {
	if m == nil {
		return nil
	}
	return machineFlow{machine: m}
}

type machineFlow struct {
	machine *booking.Machine
}

func (f machineFlow) Intercept(ctx context.Context, sender, text string) (BookingTurn, bool, error) {
	pending, handled, err := f.machine.Intercept(ctx, sender, text)
	if err != nil || !handled {
		return nil, handled, err
	}
	return pending, true, nil
}
