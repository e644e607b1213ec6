package utils

type colors struct {
	c map[string]int
}

var Colors = colors{
	// Minecraft-ish palette: grass, diamond, redstone
	c: map[string]int{
		"Grass":    0x00ff00,
		"Diamond":  0x2ee6d6,
		"Redstone": 0xd33f49,
	},
}

// Ok returns the color code for lookups that succeeded
func (c colors) Ok() int {
	return c.c["Grass"]
}

// Info returns the color code for informational messages
func (c colors) Info() int {
	return c.c["Diamond"]
}

// Error returns the color code for error messages
func (c colors) Error() int {
	return c.c["Redstone"]
}
