package main

import "sdkprep/internal/sdkprep"

func main() {
	sdkprep.Main()
}
