package vcf

// Positions holds the spans of a gVCF stream in columnar form with
// dictionary-encoded chromosome names.
type Positions struct {
	ChromIDs []uint32
	Starts   []uint32
	Widths   []uint32
	Chroms   []string // id -> name, in first-seen order
}

// Len returns the number of collected spans.
func (p *Positions) Len() int {
	return len(p.Starts)
}

// CollectPositions drains it and returns the span of every variant record.
// Invariant lines are skipped; any other error stops collection.
func CollectPositions(it *GVCFIterator) (*Positions, error) {
	p := &Positions{}
	ids := make(map[string]uint32)

	for rec, err := range it.Variants() {
		if err != nil {
			return nil, err
		}
		start, end, err := rec.Span()
		if err != nil {
			return nil, atLine(err, it.LineNumber())
		}
		id, ok := ids[rec.Chrom]
		if !ok {
			id = uint32(len(p.Chroms))
			ids[rec.Chrom] = id
			p.Chroms = append(p.Chroms, rec.Chrom)
		}
		p.ChromIDs = append(p.ChromIDs, id)
		p.Starts = append(p.Starts, start)
		p.Widths = append(p.Widths, end-start+1)
	}
	return p, nil
}
