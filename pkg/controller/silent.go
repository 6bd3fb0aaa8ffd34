package controller

// manageSilentMode keeps silent mode on in mild weather and off in cold weather.
// In between it is on unless boosting or in a stall.
func (c *Controller) manageSilentMode() {
	oat := c.oat.Value()
	switch {
	case oat >= c.tunables.SilentAlwaysOnOAT:
		if !c.silentMode.Value() {
			c.info("Switching Silent mode on oat > on")
			c.guard.SetSilentMode(true)
		}
	case oat <= c.tunables.SilentAlwaysOffOAT:
		if c.silentMode.Value() {
			c.info("Switching silent mode off oat < oat_silent_always_off")
			c.guard.SetSilentMode(false)
		}
	case c.boost.Value() || c.current == StateStall:
		if c.silentMode.Value() {
			c.info("STALL/Boost switching silent mode off")
			c.guard.SetSilentMode(false)
		}
	case !c.silentMode.Value():
		c.info("Switching silent mode on oat in between")
		c.guard.SetSilentMode(true)
	}
}
