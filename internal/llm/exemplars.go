package llm

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/acaslabs/mcp-server/constants"
)

// ExemplarPair is a matched (or output-only) input/output example used to
// steer format conversion. Pairs are matched by shared base name:
// CustomExample_isa.csv pairs with CustomExample.sel.
type ExemplarPair struct {
	Name        string
	ISAContent  string
	ACASContent string
}

// LoadExemplarPairs reads every reference example from the ISA and ACAS
// directories. ACAS outputs without an ISA counterpart are still included as
// format exemplars. Returns pairs sorted by name for prompt stability.
func LoadExemplarPairs(isaDir, acasDir string, logger *slog.Logger) ([]ExemplarPair, error) {
	if logger == nil {
		logger = slog.Default()
	}

	isaFiles, err := listFiles(isaDir, constants.ExemplarISASuffix)
	if err != nil {
		return nil, err
	}
	acasFiles, err := listFiles(acasDir, constants.ExemplarACASSuffix)
	if err != nil {
		return nil, err
	}

	byName := map[string]*ExemplarPair{}

	for _, f := range isaFiles {
		base := strings.TrimSuffix(filepath.Base(f), constants.ExemplarISASuffix)
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		byName[base] = &ExemplarPair{Name: base, ISAContent: string(content)}
	}

	for _, f := range acasFiles {
		base := strings.TrimSuffix(filepath.Base(f), constants.ExemplarACASSuffix)
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if pair, ok := byName[base]; ok {
			pair.ACASContent = string(content)
		} else {
			byName[base] = &ExemplarPair{Name: base, ACASContent: string(content)}
		}
	}

	// Input-only examples are useless for conversion; keep pairs that carry an
	// ACAS side, plus full pairs.
	pairs := make([]ExemplarPair, 0, len(byName))
	for _, p := range byName {
		if p.ACASContent == "" && p.ISAContent == "" {
			continue
		}
		pairs = append(pairs, *p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })

	logger.Debug("llm.exemplars.loaded", "isa_dir", isaDir, "acas_dir", acasDir, "pairs", len(pairs))
	return pairs, nil
}

func listFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
