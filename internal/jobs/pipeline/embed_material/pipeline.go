package embed_material

import (
	"errors"
	"fmt"

	"github.com/yungbote/skooly-backend/internal/domain"
	jobrt "github.com/yungbote/skooly-backend/internal/jobs/runtime"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	materialID, ok := jc.PayloadUUID("material_id")
	if !ok {
		jc.FailPermanent("validate", fmt.Errorf("missing material_id"))
		return nil
	}

	jc.Progress("load", 10)
	m, err := p.materials.GetByID(dbctx.Context{Ctx: jc.Ctx}, materialID)
	if errors.Is(err, domain.ErrNotFound) {
		jc.FailPermanent("load", fmt.Errorf("material %s no longer exists", materialID))
		return nil
	}
	if err != nil {
		jc.Fail("load", err)
		return nil
	}

	jc.Progress("embed", 30)
	rep := p.store.EmbedMaterial(jc.Ctx, m, jc.PayloadBool("force"))
	if rep.Status == rag.EmbedStatusFailed {
		jc.Fail("embed", errors.New(rep.Error))
		return nil
	}
	jc.Succeed("done", rep)
	return nil
}
