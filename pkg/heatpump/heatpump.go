// Package heatpump reads the heat pump over modbus and combines it with the
// relay board into the sensors and actuators of the controller.
package heatpump

import (
	"fmt"
	"math"

	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/nergy-se/antipendel/pkg/modbusclient"
	"github.com/sirupsen/logrus"
)

type HeatPump struct {
	client modbusclient.Client
	regs   config.Registers
}

func New(client modbusclient.Client, regs config.Registers) *HeatPump {
	return &HeatPump{
		client: client,
		regs:   regs,
	}
}

// Read fills the heat pump side of the readings. A temperature that can not be
// read is set to NaN so the controller treats it as invalid.
func (hp *HeatPump) Read(r *controller.Readings) error {
	var err error
	r.OutsideTemp, err = hp.scaled(ReadInput(hp.client, hp.regs.OutsideTemp))
	if err != nil {
		return err
	}
	r.SupplyTemp, err = hp.scaled(ReadInput(hp.client, hp.regs.SupplyTemp))
	if err != nil {
		return err
	}
	r.ReturnTemp, err = hp.scaled(ReadInput(hp.client, hp.regs.ReturnTemp))
	if err != nil {
		return err
	}
	r.CompressorRPM, err = hp.scaled(ReadInput(hp.client, hp.regs.CompressorRPM))
	if err != nil {
		return err
	}

	r.CompressorRunning, err = hp.client.ReadDiscreteInput(uint16(hp.regs.CompressorRunning))
	if err != nil {
		return err
	}
	r.HotWater, err = hp.client.ReadDiscreteInput(uint16(hp.regs.HotWaterActive))
	if err != nil {
		return err
	}
	r.Defrost, err = hp.client.ReadDiscreteInput(uint16(hp.regs.DefrostActive))
	if err != nil {
		return err
	}
	r.PumpRunning, err = hp.client.ReadDiscreteInput(uint16(hp.regs.PumpRunning))
	return err
}

// WriteTarget writes the supply temperature set point.
func (hp *HeatPump) WriteTarget(celsius float64) error {
	if math.IsNaN(celsius) || celsius < 0 {
		return fmt.Errorf("invalid target temperature %.1f", celsius)
	}
	v := uint16(math.Round(celsius * hp.regs.Scale))
	_, err := hp.client.WriteSingleRegister(uint16(hp.regs.TargetTemp), v)
	if err != nil {
		return fmt.Errorf("error writing target temperature: %w", err)
	}
	logrus.WithFields(logrus.Fields{"register": hp.regs.TargetTemp, "value": v}).Debug("heatpump: target written")
	return nil
}

func (hp *HeatPump) scaled(i int, err error) (float64, error) {
	if err != nil {
		return math.NaN(), err
	}
	return Scale(i, hp.regs.Scale), nil
}

func ReadInput(c modbusclient.Client, register int) (int, error) {
	return c.ReadInputRegister(uint16(register))
}

// Scale converts a raw register value to a float. A zero scale means the raw value.
func Scale(i int, scale float64) float64 {
	if scale == 0 {
		return float64(i)
	}
	return float64(i) / scale
}
