package registry

import "github.com/georgisalene/gnss-rt/internal/entity"

// Built-in source registry. CDDIS serves the IGS long-format products over
// HTTPS, the IGS and CODE archives serve over anonymous FTP, BKG covers the
// EUREF regional products. A YAML registry file extends or overrides these.
func defaultCategories() map[entity.ProductCategory]CategoryConfig {
	return map[entity.ProductCategory]CategoryConfig{
		entity.CategoryOrbit: {
			Mandatory: true,
			Sources: []entity.ProductSource{
				{
					Provider: "CDDIS", Tier: entity.TierFinal, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSFIN_{yyyy}{ddd}0000_01D_15M_ORB.SP3.gz",
				},
				{
					Provider: "CDDIS", Tier: entity.TierRapid, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSRAP_{yyyy}{ddd}0000_01D_15M_ORB.SP3.gz",
				},
				{
					Provider: "CDDIS", Tier: entity.TierUltra, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSULT_{yyyy}{ddd}0000_02D_15M_ORB.SP3.gz",
				},
				{
					Provider: "IGS", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.igs.org",
					PathTemplate: "/pub/product/{wwww}/IGS0OPSFIN_{yyyy}{ddd}0000_01D_15M_ORB.SP3.gz",
				},
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/COD{wwww}{d}.EPH.Z",
				},
			},
		},
		entity.CategoryClock: {
			Mandatory: true,
			Sources: []entity.ProductSource{
				{
					Provider: "CDDIS", Tier: entity.TierFinal, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSFIN_{yyyy}{ddd}0000_01D_30S_CLK.CLK.gz",
				},
				{
					Provider: "CDDIS", Tier: entity.TierRapid, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSRAP_{yyyy}{ddd}0000_01D_30S_CLK.CLK.gz",
				},
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/COD{wwww}{d}.CLK.Z",
				},
			},
		},
		entity.CategoryERP: {
			Mandatory: true,
			Sources: []entity.ProductSource{
				{
					Provider: "CDDIS", Tier: entity.TierFinal, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSFIN_{yyyy}{ddd}0000_01D_01D_ERP.ERP.gz",
				},
				{
					Provider: "CDDIS", Tier: entity.TierRapid, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/IGS0OPSRAP_{yyyy}{ddd}0000_01D_01D_ERP.ERP.gz",
				},
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/COD{wwww}{d}.ERP.Z",
				},
			},
		},
		entity.CategoryBias: {
			Sources: []entity.ProductSource{
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/COD0OPSFIN_{yyyy}{ddd}0000_01D_01D_OSB.BIA.gz",
				},
				{
					Provider: "CDDIS", Tier: entity.TierRapid, Protocol: "https", Host: "cddis.nasa.gov",
					PathTemplate: "/archive/gnss/products/{wwww}/COD0OPSRAP_{yyyy}{ddd}0000_01D_01D_OSB.BIA.gz",
				},
			},
		},
		entity.CategoryIonosphere: {
			Sources: []entity.ProductSource{
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/COD0OPSFIN_{yyyy}{ddd}0000_01D_01H_GIM.INX.gz",
				},
				{
					Provider: "CODE", Tier: entity.TierRapid, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/COD0OPSRAP_{yyyy}{ddd}0000_01D_01H_GIM.INX.gz",
				},
			},
		},
		entity.CategoryDCB: {
			Sources: []entity.ProductSource{
				{
					Provider: "CODE", Tier: entity.TierFinal, Protocol: "ftp", Host: "ftp.aiub.unibe.ch",
					PathTemplate: "/CODE/{yyyy}/P1C1{yy}{mon}.DCB.Z",
				},
				{
					Provider: "BKGE", Tier: entity.TierRapid, Protocol: "ftp", Host: "igs-ftp.bkg.bund.de",
					PathTemplate: "/IGS/products/dcb/{yyyy}/{ddd}/",
				},
			},
		},
	}
}
