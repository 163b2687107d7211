//go:build windows

package watch

// Windows has no RLIMIT_NOFILE; handles are bounded far above anything
// a watch tree realistically needs, so use a fixed generous budget.
const windowsHandleBudget = 4096

func descriptorCeiling() int {
	return clampCeiling(windowsHandleBudget)
}
