package sdkprep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
)

var gplRegexp = regexp.MustCompile(`^ENABLE_GPL_THIRD_PARTIES:BOOL=ON`)

const gplNotice = `
***************************************************************************
***************************************************************************
***** CAUTION, this liblinphone SDK is built using 3rd party GPL code *****
***** Even if you acquired a proprietary license from Belledonne      *****
***** Communications, this SDK is GPL and GPL only.                   *****
***** To disable 3rd party gpl code, please use:                      *****
***** $ sdkprep -DENABLE_GPL_THIRD_PARTIES=NO                         *****
***************************************************************************
***************************************************************************
`

const nonGPLNotice = `
*****************************************************************
*****************************************************************
***** Linphone SDK without 3rd party GPL software           *****
***** If you acquired a proprietary license from Belledonne *****
***** Communications, this SDK can be used to create        *****
***** a proprietary linphone-based application.             *****
*****************************************************************
*****************************************************************
`

// gplThirdPartiesEnabled reads a CMake cache and reports whether GPL third
// parties were enabled. A missing cache counts as disabled.
func gplThirdPartiesEnabled(cachePath string) bool {
	f, err := os.Open(cachePath)
	if err != nil {
		debugf("No CMake cache at %s: %v\n", cachePath, err)
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if gplRegexp.MatchString(scanner.Text()) {
			return true
		}
	}
	return false
}

// printLicenseNotice prints the notice matching the reference target's cache.
func printLicenseNotice(l Layout, ref Target, out io.Writer) {
	if gplThirdPartiesEnabled(l.abs(ref.CMakeCache())) {
		fmt.Fprint(out, colWarn.Sprint(gplNotice))
		return
	}
	fmt.Fprint(out, nonGPLNotice)
}
