package testutil

// PlantCatalog returns a builder populated with the mixed-kind catalog
// most tests start from.
func PlantCatalog() *CatalogBuilder {
	return NewCatalog().
		WithVersion("7.3.2").
		WithAnalog("Motor_Speed", "Drives").
		WithAnalog("Fan_Speed_Setpoint", "Drives").
		WithAnalog("OilTemp_Bearing", "Hydraulics").
		WithDigital("Speed_OK", "Drives").
		WithDigital("Pump_Running", "Hydraulics").
		WithText("speedNote", "")
}
