package controller

// thermostatState filters the raw thermostat signal with the on and off delays.
// Switching off waits for the minimum run time unless the compressor is not
// running anyway or the heat pump is busy with hot water or defrost.
func (c *Controller) thermostatState() bool {
	raw := c.thermostatSensor.Value()
	prev := c.thermostat.Value()
	if raw == prev {
		return prev
	}
	// instant on right after boot
	if c.current == StateInit && raw {
		return true
	}

	since := float64(c.thermostatSensor.SecondsSinceChange())
	if raw {
		if since > c.tunables.ThermostatOnDelay*60 {
			return true
		}
		return prev
	}

	if !c.compressor.Value() || c.current == StateHotWater || c.current == StateDefrost {
		return false
	}
	if since > c.tunables.ThermostatOffDelay*60 && c.secondsInRun() > c.tunables.MinimumRunTime*60 {
		return false
	}
	return prev
}
