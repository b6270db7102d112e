package planner

// DefaultTask is one item of the standard wedding checklist. MonthsBefore
// is 0 for the final week.
type DefaultTask struct {
	Title        string
	Description  string
	MonthsBefore int
}

var defaultTasks = []DefaultTask{
	{"Definir presupuesto total", "Establece cuánto pueden invertir en la boda", 12},
	{"Elegir fecha de la boda", "Considera clima, disponibilidad de lugares y fechas especiales", 12},
	{"Crear lista de invitados preliminar", "Haz un primer borrador con todos los posibles invitados", 12},
	{"Buscar y reservar lugar de ceremonia", "Visita iglesias, jardines o lugares para la ceremonia", 12},
	{"Buscar y reservar lugar de recepción", "Investiga salones, fincas o restaurantes", 12},
	{"Contratar wedding planner (opcional)", "Si necesitas ayuda profesional, este es el momento", 12},

	{"Buscar vestido de novia", "Empieza a visitar tiendas y diseñadores", 10},
	{"Contratar fotógrafo y videógrafo", "Los buenos se reservan con anticipación", 10},
	{"Reservar banda o DJ", "Define el estilo musical de tu boda", 10},
	{"Contratar servicio de catering", "Programa degustaciones", 10},

	{"Elegir tema y colores de la boda", "Define la paleta de colores y decoración", 8},
	{"Reservar florista", "Discute arreglos, bouquet y decoración floral", 8},
	{"Buscar traje del novio", "Visita sastrerías o tiendas de trajes", 8},
	{"Registrarse para lista de bodas", "Elige tiendas o crea tu Vaki", 8},
	{"Contratar transporte", "Reserva carros para novios e invitados", 8},

	{"Enviar Save the Dates", "Notifica a tus invitados la fecha", 6},
	{"Reservar luna de miel", "Investiga destinos y paquetes", 6},
	{"Comprar argollas de matrimonio", "Visita joyerías y elige el diseño", 6},
	{"Contratar decorador", "Define la decoración del lugar", 6},
	{"Agendar pruebas de maquillaje y peinado", "Programa citas con estilistas", 6},

	{"Diseñar e imprimir invitaciones", "Trabaja con un diseñador", 4},
	{"Confirmar todos los proveedores", "Revisa contratos y depósitos", 4},
	{"Planear despedida de soltera/o", "Coordina con tus amigos", 4},
	{"Reservar alojamiento para invitados", "Si vienen de otras ciudades", 4},

	{"Enviar invitaciones formales", "Incluye información de la boda y RSVP", 3},
	{"Primera prueba del vestido", "Verifica ajustes necesarios", 3},
	{"Comprar accesorios de novia", "Velo, zapatos, joyería", 3},
	{"Organizar ensayo de la boda", "Coordina con el oficiante", 3},
	{"Definir menú final", "Confirma platos con el catering", 3},

	{"Segunda prueba del vestido", "Ajustes finales", 2},
	{"Prueba del traje del novio", "Últimos ajustes", 2},
	{"Confirmar detalles con proveedores", "Horarios, entregas, setup", 2},
	{"Hacer seguimiento de RSVPs", "Confirma asistencia", 2},
	{"Planear distribución de mesas", "Organiza dónde se sienta cada invitado", 2},

	{"Prueba final de maquillaje y peinado", "Confirma el look final", 1},
	{"Recoger vestido de novia", "Verifica que todo esté perfecto", 1},
	{"Recoger traje del novio", "Última revisión", 1},
	{"Confirmar itinerario del día", "Horario detallado de la boda", 1},
	{"Preparar pagos finales", "Organiza sobres y transferencias", 1},
	{"Ensayo de la boda", "Practica la ceremonia", 1},
	{"Preparar maleta de luna de miel", "Organiza equipaje y documentos", 1},

	{"Confirmar todos los horarios", "Llama a cada proveedor", 0},
	{"Entregar distribución de mesas", "Al coordinador del lugar", 0},
	{"Preparar propinas y pagos", "Sobres listos", 0},
	{"Sesión de spa/relajación", "¡Te lo mereces!", 0},
	{"Revisar checklist del día D", "Todo debe estar listo", 0},
}

// DefaultTasks returns the standard checklist in chronological order.
func DefaultTasks() []DefaultTask {
	out := make([]DefaultTask, len(defaultTasks))
	copy(out, defaultTasks)
	return out
}

// DefaultScheduleItem is one entry of the suggested wedding-day itinerary.
type DefaultScheduleItem struct {
	Time     string
	Activity string
}

var defaultSchedule = []DefaultScheduleItem{
	{"08:00", "Desayuno de la novia con damas"},
	{"09:00", "Maquillaje y peinado"},
	{"10:00", "Llegada del fotógrafo"},
	{"11:00", "Sesión de fotos de preparación"},
	{"13:00", "Almuerzo ligero"},
	{"14:00", "Vestirse"},
	{"15:00", "First look (opcional)"},
	{"16:00", "Ceremonia religiosa"},
	{"17:00", "Cocktail y fotos con invitados"},
	{"18:00", "Entrada al salón"},
	{"18:30", "Primer baile"},
	{"19:00", "Cena"},
	{"20:00", "Corte de torta"},
	{"20:30", "Baile del padre/madre"},
	{"21:00", "Fiesta y baile"},
	{"00:00", "Despedida de los novios"},
}

// DefaultSchedule returns the suggested itinerary.
func DefaultSchedule() []DefaultScheduleItem {
	out := make([]DefaultScheduleItem, len(defaultSchedule))
	copy(out, defaultSchedule)
	return out
}
