package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/koding/multiconfig"
	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/nergy-se/antipendel/pkg/heatpump"
	"github.com/nergy-se/antipendel/pkg/modbusclient"
)

func main() {
	address := flag.String("addr", "127.0.0.1:502", "tcp modbus address")
	slaveID := flag.Int("slave", 1, "modbus slave id")
	inputreg := flag.Int("inputreg", -1, "read a single input register")
	discreteInput := flag.Int("discreteinputreg", -1, "read a single discrete input")
	target := flag.Float64("target", 0, "write target temperature in celsius")
	scale := flag.Float64("scale", 100, "register scale")
	flag.Parse()

	client := modbusclient.NewTCP(*address, *slaveID)
	defer client.Close()

	if isFlagPassed("inputreg") {
		v, err := client.ReadInputRegister(uint16(*inputreg))
		exitOnError(err)
		fmt.Printf("raw: %d scaled: %.2f\n", v, heatpump.Scale(v, *scale))
		return
	}
	if isFlagPassed("discreteinputreg") {
		v, err := client.ReadDiscreteInput(uint16(*discreteInput))
		exitOnError(err)
		fmt.Println("value is:", v)
		return
	}

	regs := defaultRegisters()
	regs.Scale = *scale
	hp := heatpump.New(client, regs)
	if isFlagPassed("target") {
		exitOnError(hp.WriteTarget(*target))
		log.Printf("target %.0f written", *target)
		return
	}

	r := controller.Readings{}
	exitOnError(hp.Read(&r))
	b, err := json.MarshalIndent(r, "", "  ")
	exitOnError(err)
	fmt.Println(string(b))
}

func defaultRegisters() config.Registers {
	cfg := config.CliConfig{}
	if err := (&multiconfig.TagLoader{}).Load(&cfg); err != nil {
		log.Fatal(err)
	}
	return cfg.Registers
}

func exitOnError(err error) {
	if err != nil {
		log.Println("error was: ", err)
		os.Exit(1)
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
