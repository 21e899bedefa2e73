package resolve

// RewriteRows applies the alias map to quote or mention rows. Rows
// whose source company was quarantined are dropped; all other rows are
// cloned with the canonical company id, preserving order and payload.
func RewriteRows(rows []Row, aliasMap map[string]string, quarantine map[string]string) ([]Row, int) {
	out := make([]Row, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		companyID := row.CompanyID()
		if quarantine[companyID] != "" {
			dropped++
			continue
		}
		target, ok := aliasMap[companyID]
		if !ok {
			target = companyID
		}
		out = append(out, row.WithCompanyID(target))
	}
	return out, dropped
}
