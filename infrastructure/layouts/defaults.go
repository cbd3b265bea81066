// Package layouts provides ports.LayoutStore implementations: an in-memory
// store seeded with the built-in report layouts and a YAML file store.
package layouts

import "github.com/ahrav/go-eyereport/internal/domain"

// DefaultLayouts returns a fresh copy of the built-in layout templates for
// domain.KnownExamTypes.
func DefaultLayouts() map[domain.ExamType]string {
	return map[domain.ExamType]string{
		domain.ExamOCTMacula:    octMaculaLayout,
		domain.ExamRetinografia: retinografiaLayout,
		domain.ExamCampimetria:  campimetriaLayout,
	}
}

const octMaculaLayout = `LAUDO DE TOMOGRAFIA DE COERÊNCIA ÓPTICA (OCT) DE MÁCULA

Qualidade do exame: <intensidade de sinal e artefatos>
Contorno foveal: <preservado / retificado / ausente>
Espessura macular central: <valor em µm e comparação com a normalidade>
Camadas retinianas: <integridade da zona elipsoide, EPR e camadas internas>
Interface vitreorretiniana: <adesões, trações, membranas>
Fluido: <intrarretiniano, sub-retiniano ou sub-EPR>
Conclusão: <síntese dos achados>`

const retinografiaLayout = `LAUDO DE RETINOGRAFIA

Meios ópticos: <transparência>
Disco óptico: <coloração, limites, escavação (relação E/D)>
Vasos: <calibre, relação arteriovenosa, cruzamentos>
Mácula: <brilho foveal, pigmentação, exsudatos, hemorragias>
Retina periférica: <achados visíveis>
Conclusão: <síntese dos achados>`

const campimetriaLayout = `LAUDO DE CAMPIMETRIA COMPUTADORIZADA

Estratégia e programa: <ex.: 24-2 SITA Standard>
Confiabilidade: <perdas de fixação, falsos positivos, falsos negativos>
Índices globais: <MD, PSD, VFI com significância>
Padrão de defeito: <localização e morfologia dos defeitos>
GHT: <resultado do teste de hemicampo para glaucoma>
Conclusão: <síntese dos achados>`
