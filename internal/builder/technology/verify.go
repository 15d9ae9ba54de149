package technology

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// VerifyUniqueProjects checks that GENERATION_PROJECT is unique in gen_info.
func VerifyUniqueProjects(genInfo *table.Table) error {
	if err := genInfo.RequireColumns("GENERATION_PROJECT"); err != nil {
		return err
	}
	var result *multierror.Error
	seen := make(map[string]bool, genInfo.Len())
	for _, p := range genInfo.Strings("GENERATION_PROJECT") {
		if seen[p] {
			result = multierror.Append(result, fmt.Errorf("duplicate generation project '%s'", p))
		}
		seen[p] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, "gen_info has duplicate projects", err)
	}
	return nil
}

// VerifyUniqueBuildCosts checks that (GENERATION_PROJECT, build_year) is unique.
func VerifyUniqueBuildCosts(buildCosts *table.Table) error {
	if err := buildCosts.RequireColumns("GENERATION_PROJECT", "build_year"); err != nil {
		return err
	}
	var result *multierror.Error
	seen := make(map[string]bool, buildCosts.Len())
	for i := 0; i < buildCosts.Len(); i++ {
		key := buildCosts.Get(i, "GENERATION_PROJECT") + "/" + buildCosts.Get(i, "build_year")
		if seen[key] {
			result = multierror.Append(result, fmt.Errorf("duplicate build cost for '%s'", key))
		}
		seen[key] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, "gen_build_costs has duplicate keys", err)
	}
	return nil
}

// VerifyRetrofitLinkage checks that every retrofit project (a project whose
// id ends with a retrofit suffix) has exactly one linkage row, that every
// linkage row names existing projects, and that each retrofit has build costs.
// All violations are reported together.
func VerifyRetrofitLinkage(genInfo, buildCosts, linkage *table.Table) error {
	if err := genInfo.RequireColumns("GENERATION_PROJECT"); err != nil {
		return err
	}
	if err := linkage.RequireColumns(BaseProjectColumn, RetrofitProjectColumn); err != nil {
		return err
	}
	projects := make(map[string]bool, genInfo.Len())
	for _, p := range genInfo.Strings("GENERATION_PROJECT") {
		projects[p] = true
	}
	costed := make(map[string]bool)
	if buildCosts != nil {
		for _, p := range buildCosts.Strings("GENERATION_PROJECT") {
			costed[p] = true
		}
	}

	var result *multierror.Error
	links := make(map[string]int)
	for i := 0; i < linkage.Len(); i++ {
		base := linkage.Get(i, BaseProjectColumn)
		retrofit := linkage.Get(i, RetrofitProjectColumn)
		links[retrofit]++
		if !projects[base] {
			result = multierror.Append(result, fmt.Errorf("linkage row %d: base project '%s' does not exist", i, base))
		}
		if !projects[retrofit] {
			result = multierror.Append(result, fmt.Errorf("linkage row %d: retrofit project '%s' does not exist", i, retrofit))
		}
		if buildCosts != nil && !costed[retrofit] {
			result = multierror.Append(result, fmt.Errorf("retrofit project '%s' has no build costs", retrofit))
		}
	}
	for _, p := range genInfo.Strings("GENERATION_PROJECT") {
		if !isRetrofit(p) {
			continue
		}
		if n := links[p]; n != 1 {
			result = multierror.Append(result, fmt.Errorf("retrofit project '%s' has %d linkage rows", p, n))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, "retrofit linkage is inconsistent", err)
	}
	return nil
}

func isRetrofit(project string) bool {
	for _, k := range RetrofitKinds {
		if strings.HasSuffix(project, k.Suffix()) {
			return true
		}
	}
	return false
}
